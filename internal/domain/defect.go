package domain

import "time"

// DefectStatus enumerates lifecycle states for defects.
type DefectStatus string

const (
	DefectStatusNew        DefectStatus = "NEW"
	DefectStatusInProgress DefectStatus = "IN_PROGRESS"
	DefectStatusInReview   DefectStatus = "IN_REVIEW"
	DefectStatusClosed     DefectStatus = "CLOSED"
	DefectStatusCanceled   DefectStatus = "CANCELED"
)

// ParseStatus converts a wire value into a DefectStatus.
func ParseStatus(value string) (DefectStatus, bool) {
	switch DefectStatus(value) {
	case DefectStatusNew, DefectStatusInProgress, DefectStatusInReview, DefectStatusClosed, DefectStatusCanceled:
		return DefectStatus(value), true
	}
	return "", false
}

// IsTerminal reports whether the status is a final state. The reopen edge out
// of Closed is a workflow concern, not a status property.
func (s DefectStatus) IsTerminal() bool {
	return s == DefectStatusClosed || s == DefectStatusCanceled
}

// DefectPriority enumerates urgency levels.
type DefectPriority string

const (
	DefectPriorityLow      DefectPriority = "LOW"
	DefectPriorityMedium   DefectPriority = "MEDIUM"
	DefectPriorityHigh     DefectPriority = "HIGH"
	DefectPriorityCritical DefectPriority = "CRITICAL"
)

// ParsePriority converts a wire value into a DefectPriority.
func ParsePriority(value string) (DefectPriority, bool) {
	switch DefectPriority(value) {
	case DefectPriorityLow, DefectPriorityMedium, DefectPriorityHigh, DefectPriorityCritical:
		return DefectPriority(value), true
	}
	return "", false
}

const (
	// MaxTitleLength bounds defect titles.
	MaxTitleLength = 200
	// MaxDescriptionLength bounds defect descriptions.
	MaxDescriptionLength = 10_000
)

// Defect is the central aggregate. Version is the optimistic-concurrency
// token: regenerated on every successful write, compared on every update.
type Defect struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      DefectStatus
	Priority    DefectPriority
	CreatedByID string
	AssignedID  *string
	DueDate     *time.Time
	Tags        []string
	Version     string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
