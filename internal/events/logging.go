package events

import (
	"context"

	"go.uber.org/zap"
)

// RegisterLogging subscribes a zap-backed observer to every defect event.
// This is the audit observation point; notification delivery is out of scope.
func RegisterLogging(dispatcher Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	types := []EventType{
		EventDefectCreated,
		EventDefectStatusChanged,
		EventDefectPriorityChanged,
		EventDefectAssigned,
		EventDefectDueDateChanged,
		EventDefectTagsUpdated,
		EventDefectDeleted,
	}
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event Event) error {
			logger.Info("defect event",
				zap.String("type", string(event.Type)),
				zap.String("defect_id", event.DefectID),
				zap.String("actor_id", event.ActorID),
				zap.Any("payload", event.Payload))
			return nil
		})
	}
}
