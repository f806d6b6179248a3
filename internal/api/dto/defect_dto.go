package dto

import (
	"time"

	"github.com/spec-kit/defects-service/internal/domain"
)

// CreateDefectRequest payload. Status is always forced to NEW server-side;
// assigned_id and due_date are honored only for Managers.
type CreateDefectRequest struct {
	ProjectID   string   `json:"project_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	AssignedID  *string  `json:"assigned_id"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
}

// UpdateDefectRequest carries a partial field set. Pointers distinguish
// "absent" from "set to empty/null".
type UpdateDefectRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	Status      *string  `json:"status"`
	AssignedID  *string  `json:"assigned_id"`
	ClearAssign bool     `json:"clear_assigned"`
	DueDate     *string  `json:"due_date"`
	ClearDue    bool     `json:"clear_due_date"`
}

// AssignDefectRequest payload; a null assigned_id clears the assignee.
type AssignDefectRequest struct {
	AssignedID *string `json:"assigned_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority string `json:"priority"`
}

// ChangeDueDateRequest payload; a null due_date clears it.
type ChangeDueDateRequest struct {
	DueDate *string `json:"due_date"`
}

// PutTagsRequest replaces the whole tag set.
type PutTagsRequest struct {
	Tags []string `json:"tags"`
}

// DefectResponse is the full defect shape.
type DefectResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	CreatedByID string     `json:"created_by_id"`
	AssignedID  *string    `json:"assigned_id"`
	DueDate     *string    `json:"due_date"`
	Tags        []string   `json:"tags"`
	Version     string     `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// FromDefect maps a domain defect to its response shape.
func FromDefect(defect *domain.Defect) DefectResponse {
	tags := defect.Tags
	if tags == nil {
		tags = []string{}
	}
	var dueDate *string
	if defect.DueDate != nil {
		formatted := defect.DueDate.Format("2006-01-02")
		dueDate = &formatted
	}
	return DefectResponse{
		ID:          defect.ID,
		ProjectID:   defect.ProjectID,
		Title:       defect.Title,
		Description: defect.Description,
		Status:      string(defect.Status),
		Priority:    string(defect.Priority),
		CreatedByID: defect.CreatedByID,
		AssignedID:  defect.AssignedID,
		DueDate:     dueDate,
		Tags:        tags,
		Version:     defect.Version,
		CreatedAt:   defect.CreatedAt,
		UpdatedAt:   defect.UpdatedAt,
		ClosedAt:    defect.ClosedAt,
	}
}

// FromHistory maps a history entry to its response shape.
func FromHistory(entry domain.DefectHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:         entry.ID,
		EventType:  string(entry.EventType),
		ActorID:    entry.ActorID,
		Payload:    entry.Payload,
		OccurredAt: entry.OccurredAt,
	}
}
