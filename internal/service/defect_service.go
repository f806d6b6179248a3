package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/defects-service/internal/access"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/events"
	"github.com/spec-kit/defects-service/internal/policy"
	"github.com/spec-kit/defects-service/internal/repository"
	"github.com/spec-kit/defects-service/internal/tagset"
	"github.com/spec-kit/defects-service/internal/workflow"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// DefectService orchestrates the defect lifecycle: it loads the aggregate,
// applies the authorization policy and the workflow graph, mutates fields,
// and persists atomically with the history entries describing the change.
// Every write regenerates the version token; a stale token surfaces as
// CONFLICT and the caller re-fetches and retries.
type DefectService struct {
	defects    repository.DefectRepository
	history    repository.DefectHistoryRepository
	access     access.ProjectAccess
	dispatcher events.Dispatcher
}

// DefectDependencies bundles collaborators for the defect service.
type DefectDependencies struct {
	DefectRepo  repository.DefectRepository
	HistoryRepo repository.DefectHistoryRepository
	Access      access.ProjectAccess
	Dispatcher  events.Dispatcher
}

// DefectCreateInput describes defect creation payload.
type DefectCreateInput struct {
	ProjectID   string
	Title       string
	Description string
	Priority    domain.DefectPriority
	AssignedID  *string
	DueDate     *time.Time
	Tags        []string
}

// DefectUpdateInput is a partial field set. Nil pointers mean "untouched";
// the Set flags distinguish clearing a nullable field from leaving it alone.
type DefectUpdateInput struct {
	Title         *string
	Description   *string
	Priority      *domain.DefectPriority
	Status        *domain.DefectStatus
	AssignedID    *string
	AssignedIDSet bool
	DueDate       *time.Time
	DueDateSet    bool
}

// NewDefectService constructs the service.
func NewDefectService(deps DefectDependencies) *DefectService {
	return &DefectService{
		defects:    deps.DefectRepo,
		history:    deps.HistoryRepo,
		access:     deps.Access,
		dispatcher: deps.Dispatcher,
	}
}

// Create validates the project and optional assignee, forces status New, and
// strips assignee/due date unless the actor is a Manager. History reflects
// actual state only: assignedChanged/dueDateChanged/tagsUpdated entries are
// emitted solely for fields that were non-empty at creation.
func (s *DefectService) Create(ctx context.Context, actor domain.Actor, input DefectCreateInput) (*domain.Defect, error) {
	if !policy.CanCreate(actor) {
		return nil, apperrors.NewForbidden("role cannot create defects")
	}

	title := strings.TrimSpace(input.Title)
	if err := validateContent(title, input.Description); err != nil {
		return nil, err
	}

	exists, err := s.access.ProjectExists(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewValidationError("project not found", map[string]any{"project_id": input.ProjectID})
	}

	assignedID := input.AssignedID
	dueDate := input.DueDate
	if !policy.CanCreateWithAssignment(actor) {
		assignedID = nil
		dueDate = nil
	}
	if assignedID != nil {
		ok, err := s.access.UserExists(ctx, *assignedID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewValidationError("assigned user not found", map[string]any{"user_id": *assignedID})
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.DefectPriorityMedium
	}

	defect := &domain.Defect{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.DefectStatusNew,
		Priority:    priority,
		CreatedByID: actor.ID,
		AssignedID:  assignedID,
		DueDate:     dueDate,
		Tags:        tagset.Normalize(input.Tags),
		Version:     uuid.NewString(),
	}

	history := []*domain.DefectHistory{
		s.entry(defect.ID, actor.ID, domain.EventCreated, map[string]any{
			"title":    defect.Title,
			"priority": string(defect.Priority),
			"status":   string(defect.Status),
		}),
	}
	if defect.AssignedID != nil {
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventAssignedChanged, map[string]any{
			"from": nil,
			"to":   *defect.AssignedID,
		}))
	}
	if defect.DueDate != nil {
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventDueDateChanged, map[string]any{
			"from": nil,
			"to":   dateValue(defect.DueDate),
		}))
	}
	if len(defect.Tags) > 0 {
		delta := tagset.Reconcile(nil, defect.Tags)
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventTagsUpdated, map[string]any{
			"from": delta.From,
			"to":   delta.To,
		}))
	}

	if err := s.defects.Create(ctx, defect, history); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventDefectCreated,
		DefectID: defect.ID,
		ActorID:  actor.ID,
		Payload: events.DefectCreatedPayload{
			ProjectID: defect.ProjectID,
			Title:     defect.Title,
			Priority:  defect.Priority,
		},
	})
	return defect, nil
}

// Get returns a defect by id, excluding soft-deleted ones.
func (s *DefectService) Get(ctx context.Context, id string) (*domain.Defect, error) {
	return s.defects.GetByID(ctx, id)
}

// List returns all non-deleted defects, newest first.
func (s *DefectService) List(ctx context.Context) ([]domain.Defect, error) {
	return s.defects.List(ctx)
}

// ListByProject returns a project's non-deleted defects, newest first.
func (s *DefectService) ListByProject(ctx context.Context, projectID string) ([]domain.Defect, error) {
	return s.defects.ListByProject(ctx, projectID)
}

// Update applies a partial field set. Every touched field is authorized
// before any field is mutated; a single rejection fails the whole request.
// History records one entry per field whose new value differs from the old.
func (s *DefectService) Update(ctx context.Context, id string, actor domain.Actor, input DefectUpdateInput) (*domain.Defect, error) {
	defect, err := s.defects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	own := s.ownership(defect, actor)

	// Authorization for the whole request precedes all mutation.
	if input.Title != nil || input.Description != nil {
		if !policy.CanEditContent(actor, own, defect.Status) {
			return nil, apperrors.NewForbidden("role cannot edit title or description")
		}
	}
	if input.Priority != nil && !policy.CanChangePriority(actor) {
		return nil, apperrors.NewForbidden("only Manager can change priority")
	}
	if input.Status != nil && *input.Status != defect.Status {
		if err := s.authorizeTransition(actor, own, defect.Status, *input.Status); err != nil {
			return nil, err
		}
	}
	if input.AssignedIDSet {
		if !policy.CanAssign(actor) {
			return nil, apperrors.NewForbidden("only Manager can (re)assign")
		}
		if input.AssignedID != nil {
			ok, err := s.access.UserExists(ctx, *input.AssignedID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, apperrors.NewValidationError("assigned user not found", map[string]any{"user_id": *input.AssignedID})
			}
		}
	}
	if input.DueDateSet && !policy.CanChangeDueDate(actor) {
		return nil, apperrors.NewForbidden("only Manager can change due date")
	}

	var history []*domain.DefectHistory
	var emitted []events.Event

	contentChanged := false
	newTitle, newDescription := defect.Title, defect.Description
	if input.Title != nil {
		newTitle = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		newDescription = strings.TrimSpace(*input.Description)
	}
	if input.Title != nil || input.Description != nil {
		if err := validateContent(newTitle, newDescription); err != nil {
			return nil, err
		}
		contentChanged = newTitle != defect.Title || newDescription != defect.Description
		defect.Title = newTitle
		defect.Description = newDescription
	}

	if input.Priority != nil && *input.Priority != defect.Priority {
		old := defect.Priority
		defect.Priority = *input.Priority
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventPriorityChanged, map[string]any{
			"from": string(old),
			"to":   string(defect.Priority),
		}))
		emitted = append(emitted, events.Event{
			Type:     events.EventDefectPriorityChanged,
			DefectID: defect.ID,
			ActorID:  actor.ID,
			Payload:  events.DefectPriorityChangedPayload{OldPriority: old, NewPriority: defect.Priority},
		})
	}

	if input.Status != nil && *input.Status != defect.Status {
		old := defect.Status
		defect.Status = *input.Status
		if defect.Status == domain.DefectStatusClosed {
			now := time.Now().UTC()
			defect.ClosedAt = &now
		}
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventStatusChanged, map[string]any{
			"from": string(old),
			"to":   string(defect.Status),
		}))
		emitted = append(emitted, events.Event{
			Type:     events.EventDefectStatusChanged,
			DefectID: defect.ID,
			ActorID:  actor.ID,
			Payload:  events.DefectStatusChangedPayload{OldStatus: old, NewStatus: defect.Status},
		})
	}

	if input.AssignedIDSet && !equalPtr(defect.AssignedID, input.AssignedID) {
		old := defect.AssignedID
		defect.AssignedID = input.AssignedID
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventAssignedChanged, map[string]any{
			"from": ptrValue(old),
			"to":   ptrValue(defect.AssignedID),
		}))
		emitted = append(emitted, events.Event{
			Type:     events.EventDefectAssigned,
			DefectID: defect.ID,
			ActorID:  actor.ID,
			Payload:  events.DefectAssignedPayload{OldAssignedID: old, NewAssignedID: defect.AssignedID},
		})
	}

	if input.DueDateSet && !equalDate(defect.DueDate, input.DueDate) {
		old := defect.DueDate
		defect.DueDate = input.DueDate
		history = append(history, s.entry(defect.ID, actor.ID, domain.EventDueDateChanged, map[string]any{
			"from": dateValue(old),
			"to":   dateValue(defect.DueDate),
		}))
		emitted = append(emitted, events.Event{
			Type:     events.EventDefectDueDateChanged,
			DefectID: defect.ID,
			ActorID:  actor.ID,
			Payload:  events.DefectDueDateChangedPayload{OldDueDate: old, NewDueDate: defect.DueDate},
		})
	}

	if len(history) == 0 && !contentChanged {
		// Nothing differs from the stored state: no write, no history.
		return defect, nil
	}

	expected := defect.Version
	defect.Version = uuid.NewString()
	if err := s.defects.Save(ctx, defect, expected, nil, history); err != nil {
		return nil, err
	}
	for _, event := range emitted {
		s.publish(ctx, event)
	}
	return defect, nil
}

// Assign sets or clears the assignee. Manager-only.
func (s *DefectService) Assign(ctx context.Context, id string, actor domain.Actor, assignedID *string) (*domain.Defect, error) {
	return s.Update(ctx, id, actor, DefectUpdateInput{AssignedID: assignedID, AssignedIDSet: true})
}

// ChangeStatus moves the defect along the workflow graph, including the
// Manager-only reopen edge out of Closed. Transitioning into Closed stamps
// closedAt; reopening never clears it.
func (s *DefectService) ChangeStatus(ctx context.Context, id string, actor domain.Actor, newStatus domain.DefectStatus) (*domain.Defect, error) {
	return s.Update(ctx, id, actor, DefectUpdateInput{Status: &newStatus})
}

// ChangePriority is the single-field variant of Update. Manager-only.
func (s *DefectService) ChangePriority(ctx context.Context, id string, actor domain.Actor, priority domain.DefectPriority) (*domain.Defect, error) {
	return s.Update(ctx, id, actor, DefectUpdateInput{Priority: &priority})
}

// ChangeDueDate sets or clears the due date. Manager-only.
func (s *DefectService) ChangeDueDate(ctx context.Context, id string, actor domain.Actor, dueDate *time.Time) (*domain.Defect, error) {
	return s.Update(ctx, id, actor, DefectUpdateInput{DueDate: dueDate, DueDateSet: true})
}

// PutTags replaces the whole tag set, deduplicating case-insensitively, and
// records the sorted before/after lists. An equivalent set is a no-op.
func (s *DefectService) PutTags(ctx context.Context, id string, actor domain.Actor, tags []string) (*domain.Defect, error) {
	defect, err := s.defects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReplaceTags(actor, s.ownership(defect, actor)) {
		return nil, apperrors.NewForbidden("role cannot replace tags")
	}

	delta := tagset.Reconcile(defect.Tags, tags)
	if !delta.Changed {
		return defect, nil
	}

	defect.Tags = delta.To
	expected := defect.Version
	defect.Version = uuid.NewString()

	history := []*domain.DefectHistory{
		s.entry(defect.ID, actor.ID, domain.EventTagsUpdated, map[string]any{
			"from": delta.From,
			"to":   delta.To,
		}),
	}
	ops := &repository.TagOps{Remove: delta.Remove, Add: delta.Add}
	if err := s.defects.Save(ctx, defect, expected, ops, history); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventDefectTagsUpdated,
		DefectID: defect.ID,
		ActorID:  actor.ID,
		Payload:  events.DefectTagsUpdatedPayload{From: delta.From, To: delta.To},
	})
	return defect, nil
}

// Delete soft-deletes. Manager-only, and only while status is New or
// Canceled. The row stays for audit; reads exclude it from then on.
func (s *DefectService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	defect, err := s.defects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(actor) {
		return apperrors.NewForbidden("only Manager can delete defects")
	}
	if defect.Status != domain.DefectStatusNew && defect.Status != domain.DefectStatusCanceled {
		return apperrors.NewInvalidTransition("can delete only New or Canceled defects", map[string]any{
			"status": string(defect.Status),
		})
	}

	defect.IsDeleted = true
	expected := defect.Version
	defect.Version = uuid.NewString()

	history := []*domain.DefectHistory{
		s.entry(defect.ID, actor.ID, domain.EventDeleted, map[string]any{}),
	}
	if err := s.defects.Save(ctx, defect, expected, nil, history); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventDefectDeleted,
		DefectID: defect.ID,
		ActorID:  actor.ID,
	})
	return nil
}

// ListHistory returns the audit trail for a defect, newest first by default.
func (s *DefectService) ListHistory(ctx context.Context, id string, query repository.HistoryQuery) ([]domain.DefectHistory, error) {
	if _, err := s.defects.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.List(ctx, id, query)
}

func (s *DefectService) authorizeTransition(actor domain.Actor, own policy.Ownership, from, to domain.DefectStatus) error {
	if !workflow.CanTransition(from, to) {
		return apperrors.NewInvalidTransition("illegal status transition", map[string]any{
			"from": string(from),
			"to":   string(to),
		})
	}
	if !policy.CanChangeStatus(actor, own, from, to) {
		return apperrors.NewForbidden("role cannot perform this transition")
	}
	return nil
}

func (s *DefectService) ownership(defect *domain.Defect, actor domain.Actor) policy.Ownership {
	return policy.Ownership{
		IsCreator:  defect.CreatedByID == actor.ID,
		IsAssignee: defect.AssignedID != nil && *defect.AssignedID == actor.ID,
	}
}

func (s *DefectService) entry(defectID, actorID string, eventType domain.HistoryEventType, payload map[string]any) *domain.DefectHistory {
	return &domain.DefectHistory{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		ActorID:   actorID,
		EventType: eventType,
		Payload:   payload,
	}
}

func (s *DefectService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateContent(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return apperrors.NewValidationError("title is required", nil)
	}
	if len(title) > domain.MaxTitleLength {
		return apperrors.NewValidationError("title too long", map[string]any{"max": domain.MaxTitleLength})
	}
	if len(description) > domain.MaxDescriptionLength {
		return apperrors.NewValidationError("description too long", map[string]any{"max": domain.MaxDescriptionLength})
	}
	return nil
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func ptrValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func dateValue(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format("2006-01-02")
}
