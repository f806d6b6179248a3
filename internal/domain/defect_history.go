package domain

import "time"

// HistoryEventType captures what kind of change a history entry records.
type HistoryEventType string

const (
	EventCreated         HistoryEventType = "created"
	EventStatusChanged   HistoryEventType = "statusChanged"
	EventPriorityChanged HistoryEventType = "priorityChanged"
	EventAssignedChanged HistoryEventType = "assignedChanged"
	EventDueDateChanged  HistoryEventType = "dueDateChanged"
	EventTagsUpdated     HistoryEventType = "tagsUpdated"
	EventCommentAdded      HistoryEventType = "commentAdded"
	EventCommentEdited     HistoryEventType = "commentEdited"
	EventCommentDeleted    HistoryEventType = "commentDeleted"
	EventAttachmentAdded   HistoryEventType = "attachmentAdded"
	EventAttachmentDeleted HistoryEventType = "attachmentDeleted"
	EventDeleted           HistoryEventType = "deleted"
)

// DefectHistory is an immutable audit trail entry. The payload is an opaque
// structured document, commonly {from, to}; it is written once and never
// migrated, so readers must tolerate shape drift across event types.
type DefectHistory struct {
	ID         string
	DefectID   string
	ActorID    string
	EventType  HistoryEventType
	Payload    map[string]any
	OccurredAt time.Time
}

// HistoryOrder controls list direction: newest-first for browsing,
// oldest-first for replay.
type HistoryOrder string

const (
	HistoryOrderDesc HistoryOrder = "desc"
	HistoryOrderAsc  HistoryOrder = "asc"
)

const (
	// DefaultHistoryPageSize applies when the caller gives no limit.
	DefaultHistoryPageSize = 100
	// MaxHistoryPageSize is the hard cap on one history page.
	MaxHistoryPageSize = 500
)
