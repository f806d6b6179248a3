package events

import (
	"time"

	"github.com/spec-kit/defects-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDefectCreated         EventType = "defect_created"
	EventDefectStatusChanged   EventType = "defect_status_changed"
	EventDefectPriorityChanged EventType = "defect_priority_changed"
	EventDefectAssigned        EventType = "defect_assigned"
	EventDefectDueDateChanged  EventType = "defect_due_date_changed"
	EventDefectTagsUpdated     EventType = "defect_tags_updated"
	EventDefectDeleted         EventType = "defect_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	DefectID  string      `json:"defect_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DefectCreatedPayload payload.
type DefectCreatedPayload struct {
	ProjectID string                `json:"project_id"`
	Title     string                `json:"title"`
	Priority  domain.DefectPriority `json:"priority"`
}

// DefectStatusChangedPayload payload.
type DefectStatusChangedPayload struct {
	OldStatus domain.DefectStatus `json:"old_status"`
	NewStatus domain.DefectStatus `json:"new_status"`
}

// DefectPriorityChangedPayload payload.
type DefectPriorityChangedPayload struct {
	OldPriority domain.DefectPriority `json:"old_priority"`
	NewPriority domain.DefectPriority `json:"new_priority"`
}

// DefectAssignedPayload payload.
type DefectAssignedPayload struct {
	OldAssignedID *string `json:"old_assigned_id,omitempty"`
	NewAssignedID *string `json:"new_assigned_id,omitempty"`
}

// DefectDueDateChangedPayload payload.
type DefectDueDateChangedPayload struct {
	OldDueDate *time.Time `json:"old_due_date,omitempty"`
	NewDueDate *time.Time `json:"new_due_date,omitempty"`
}

// DefectTagsUpdatedPayload payload.
type DefectTagsUpdatedPayload struct {
	From []string `json:"from"`
	To   []string `json:"to"`
}
