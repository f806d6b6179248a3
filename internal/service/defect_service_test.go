package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/events"
	"github.com/spec-kit/defects-service/internal/repository"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

var (
	manager  = domain.Actor{ID: "user-mgr", Role: domain.RoleManager}
	engineer = domain.Actor{ID: "user-eng", Role: domain.RoleEngineer}
	observer = domain.Actor{ID: "user-obs", Role: domain.RoleObserver}
)

type defectFixture struct {
	service    *DefectService
	store      *memStore
	access     *fakeAccess
	dispatcher *recordingDispatcher
}

func newDefectFixture() *defectFixture {
	store := newMemStore()
	projectAccess := newFakeAccess()
	projectAccess.addMember("proj-1", manager.ID, domain.RoleManager)
	projectAccess.addMember("proj-1", engineer.ID, domain.RoleEngineer)
	projectAccess.addMember("proj-1", observer.ID, domain.RoleObserver)

	dispatcher := &recordingDispatcher{}
	svc := NewDefectService(DefectDependencies{
		DefectRepo:  &fakeDefectRepo{store: store},
		HistoryRepo: &fakeHistoryRepo{store: store},
		Access:      projectAccess,
		Dispatcher:  dispatcher,
	})
	return &defectFixture{service: svc, store: store, access: projectAccess, dispatcher: dispatcher}
}

func (f *defectFixture) mustCreate(t *testing.T, actor domain.Actor, input DefectCreateInput) *domain.Defect {
	t.Helper()
	if input.ProjectID == "" {
		input.ProjectID = "proj-1"
	}
	if input.Title == "" {
		input.Title = "login fails on empty password"
	}
	defect, err := f.service.Create(context.Background(), actor, input)
	require.NoError(t, err)
	return defect
}

func (f *defectFixture) historyFor(t *testing.T, defectID string) []domain.DefectHistory {
	t.Helper()
	entries, err := f.service.ListHistory(context.Background(), defectID, repository.HistoryQuery{Order: domain.HistoryOrderAsc})
	require.NoError(t, err)
	return entries
}

func TestCreateDefaults(t *testing.T) {
	f := newDefectFixture()

	defect := f.mustCreate(t, engineer, DefectCreateInput{Title: "  padded title  "})

	assert.Equal(t, "padded title", defect.Title)
	assert.Equal(t, domain.DefectStatusNew, defect.Status)
	assert.Equal(t, domain.DefectPriorityMedium, defect.Priority)
	assert.Equal(t, engineer.ID, defect.CreatedByID)
	assert.NotEmpty(t, defect.Version)

	entries := f.historyFor(t, defect.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventCreated, entries[0].EventType)
}

func TestCreateEngineerAssignmentStripped(t *testing.T) {
	f := newDefectFixture()

	assignee := manager.ID
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	defect := f.mustCreate(t, engineer, DefectCreateInput{
		AssignedID: &assignee,
		DueDate:    &due,
	})

	assert.Nil(t, defect.AssignedID)
	assert.Nil(t, defect.DueDate)

	entries := f.historyFor(t, defect.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EventCreated, entries[0].EventType)
}

func TestCreateManagerWithAssignment(t *testing.T) {
	f := newDefectFixture()

	assignee := engineer.ID
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	defect := f.mustCreate(t, manager, DefectCreateInput{
		AssignedID: &assignee,
		DueDate:    &due,
		Tags:       []string{"Auth", "auth", "ui"},
	})

	require.NotNil(t, defect.AssignedID)
	assert.Equal(t, engineer.ID, *defect.AssignedID)
	require.NotNil(t, defect.DueDate)
	assert.Equal(t, []string{"Auth", "ui"}, defect.Tags)

	types := make([]domain.HistoryEventType, 0)
	for _, entry := range f.historyFor(t, defect.ID) {
		types = append(types, entry.EventType)
	}
	assert.Equal(t, []domain.HistoryEventType{
		domain.EventCreated,
		domain.EventAssignedChanged,
		domain.EventDueDateChanged,
		domain.EventTagsUpdated,
	}, types)
}

func TestCreateRejections(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, observer, DefectCreateInput{ProjectID: "proj-1", Title: "x"})
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.service.Create(ctx, engineer, DefectCreateInput{ProjectID: "proj-missing", Title: "x"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.service.Create(ctx, engineer, DefectCreateInput{ProjectID: "proj-1", Title: "   "})
	assert.True(t, apperrors.IsValidation(err))

	ghost := "user-ghost"
	_, err = f.service.Create(ctx, manager, DefectCreateInput{ProjectID: "proj-1", Title: "x", AssignedID: &ghost})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateNoOpSkipsWrite(t *testing.T) {
	f := newDefectFixture()
	defect := f.mustCreate(t, engineer, DefectCreateInput{Title: "same title"})

	title := "same title"
	updated, err := f.service.Update(context.Background(), defect.ID, engineer, DefectUpdateInput{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, defect.Version, updated.Version)
	assert.Len(t, f.historyFor(t, defect.ID), 1)
}

func TestUpdateSingleFieldAppendsOneEntry(t *testing.T) {
	f := newDefectFixture()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	priority := domain.DefectPriorityHigh
	updated, err := f.service.Update(context.Background(), defect.ID, manager, DefectUpdateInput{Priority: &priority})
	require.NoError(t, err)

	assert.Equal(t, domain.DefectPriorityHigh, updated.Priority)
	assert.NotEqual(t, defect.Version, updated.Version)

	entries := f.historyFor(t, defect.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EventPriorityChanged, entries[1].EventType)
	assert.Equal(t, "MEDIUM", entries[1].Payload["from"])
	assert.Equal(t, "HIGH", entries[1].Payload["to"])
}

func TestUpdateAuthorizationPrecedesMutation(t *testing.T) {
	f := newDefectFixture()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	// A request mixing one permitted and one forbidden field fails whole.
	title := "new title"
	priority := domain.DefectPriorityHigh
	_, err := f.service.Update(context.Background(), defect.ID, engineer, DefectUpdateInput{
		Title:    &title,
		Priority: &priority,
	})
	assert.True(t, apperrors.IsForbidden(err))

	reloaded, err := f.service.Get(context.Background(), defect.ID)
	require.NoError(t, err)
	assert.Equal(t, defect.Title, reloaded.Title)
	assert.Equal(t, defect.Priority, reloaded.Priority)
	assert.Len(t, f.historyFor(t, defect.ID), 1)
}

func TestUpdateFieldPermissions(t *testing.T) {
	tests := []struct {
		name  string
		actor domain.Actor
		input DefectUpdateInput
	}{
		{"engineer cannot change priority", engineer, DefectUpdateInput{Priority: priorityPtr(domain.DefectPriorityLow)}},
		{"engineer cannot assign", engineer, DefectUpdateInput{AssignedIDSet: true, AssignedID: strPtr("user-eng")}},
		{"engineer cannot change due date", engineer, DefectUpdateInput{DueDateSet: true}},
		{"observer cannot edit content", observer, DefectUpdateInput{Title: strPtr("t")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newDefectFixture()
			defect := f.mustCreate(t, engineer, DefectCreateInput{})
			_, err := f.service.Update(context.Background(), defect.ID, tc.actor, tc.input)
			assert.True(t, apperrors.IsForbidden(err))
		})
	}
}

func TestEngineerEditsOwnedNonTerminalOnly(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()

	owned := f.mustCreate(t, engineer, DefectCreateInput{})
	_, err := f.service.Update(ctx, owned.ID, engineer, DefectUpdateInput{Title: strPtr("retitled")})
	require.NoError(t, err)

	foreign := f.mustCreate(t, manager, DefectCreateInput{})
	_, err = f.service.Update(ctx, foreign.ID, engineer, DefectUpdateInput{Title: strPtr("retitled")})
	assert.True(t, apperrors.IsForbidden(err))

	// Assignment grants ownership.
	_, err = f.service.Assign(ctx, foreign.ID, manager, strPtr(engineer.ID))
	require.NoError(t, err)
	_, err = f.service.Update(ctx, foreign.ID, engineer, DefectUpdateInput{Title: strPtr("assignee retitled")})
	require.NoError(t, err)
}

func TestStatusTransitions(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	// Illegal edge is a workflow error even for Managers.
	_, err := f.service.ChangeStatus(ctx, defect.ID, manager, domain.DefectStatusClosed)
	assert.True(t, apperrors.IsInvalidTransition(err))

	// Engineers may never cancel.
	_, err = f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusCanceled)
	assert.True(t, apperrors.IsForbidden(err))

	// Owner walks the happy path.
	_, err = f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusInProgress)
	require.NoError(t, err)
	_, err = f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusInReview)
	require.NoError(t, err)

	closed, err := f.service.ChangeStatus(ctx, defect.ID, manager, domain.DefectStatusClosed)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)

	// Reopening is Manager-only and preserves closedAt.
	_, err = f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusInProgress)
	assert.True(t, apperrors.IsForbidden(err))

	reopened, err := f.service.ChangeStatus(ctx, defect.ID, manager, domain.DefectStatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, reopened.ClosedAt)
	assert.Equal(t, *closed.ClosedAt, *reopened.ClosedAt)

	var statusChanges int
	for _, entry := range f.historyFor(t, defect.ID) {
		if entry.EventType == domain.EventStatusChanged {
			statusChanges++
		}
	}
	assert.Equal(t, 4, statusChanges)
}

func TestStatusNoOpIsSilent(t *testing.T) {
	f := newDefectFixture()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	updated, err := f.service.ChangeStatus(context.Background(), defect.ID, engineer, domain.DefectStatusNew)
	require.NoError(t, err)
	assert.Equal(t, defect.Version, updated.Version)
	assert.Len(t, f.historyFor(t, defect.ID), 1)
}

func TestSaveConflictSurfacesAsConflict(t *testing.T) {
	f := newDefectFixture()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	// Reads race a concurrent writer: the loaded token is stale by save time.
	stale := &staleReadRepo{fakeDefectRepo: &fakeDefectRepo{store: f.store}, version: "superseded"}
	racing := NewDefectService(DefectDependencies{
		DefectRepo:  stale,
		HistoryRepo: &fakeHistoryRepo{store: f.store},
		Access:      f.access,
	})

	_, err := racing.ChangePriority(context.Background(), defect.ID, manager, domain.DefectPriorityHigh)
	assert.True(t, apperrors.IsConflict(err))
}

// staleReadRepo returns defects bearing an outdated version token.
type staleReadRepo struct {
	*fakeDefectRepo
	version string
}

func (r *staleReadRepo) GetByID(ctx context.Context, id string) (*domain.Defect, error) {
	defect, err := r.fakeDefectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	defect.Version = r.version
	return defect, nil
}

func TestPutTags(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	updated, err := f.service.PutTags(ctx, defect.ID, engineer, []string{"Foo", "foo", "BAR"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BAR", "Foo"}, updated.Tags)

	entries := f.historyFor(t, defect.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EventTagsUpdated, entries[1].EventType)

	// A case-variant of the same set is a no-op: no write, no history.
	same, err := f.service.PutTags(ctx, defect.ID, engineer, []string{"bar", "FOO"})
	require.NoError(t, err)
	assert.Equal(t, updated.Version, same.Version)
	assert.Len(t, f.historyFor(t, defect.ID), 2)

	// Clearing is an ordinary replacement.
	cleared, err := f.service.PutTags(ctx, defect.ID, engineer, nil)
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)

	_, err = f.service.PutTags(ctx, defect.ID, observer, []string{"x"})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestDelete(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()

	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	err := f.service.Delete(ctx, defect.ID, engineer)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.service.Delete(ctx, defect.ID, manager))

	_, err = f.service.Get(ctx, defect.ID)
	assert.True(t, apperrors.IsNotFound(err))

	listed, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteGatedByStatus(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()

	defect := f.mustCreate(t, engineer, DefectCreateInput{})
	_, err := f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusInProgress)
	require.NoError(t, err)

	err = f.service.Delete(ctx, defect.ID, manager)
	assert.True(t, apperrors.IsInvalidTransition(err))

	_, err = f.service.ChangeStatus(ctx, defect.ID, manager, domain.DefectStatusCanceled)
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(ctx, defect.ID, manager))
}

func TestListHistoryOrderAndPaging(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()
	defect := f.mustCreate(t, engineer, DefectCreateInput{})

	_, err := f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusInProgress)
	require.NoError(t, err)
	_, err = f.service.ChangePriority(ctx, defect.ID, manager, domain.DefectPriorityCritical)
	require.NoError(t, err)

	// Default order is newest first.
	desc, err := f.service.ListHistory(ctx, defect.ID, repository.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, domain.EventPriorityChanged, desc[0].EventType)
	assert.Equal(t, domain.EventCreated, desc[2].EventType)

	// Ascending replays the lifecycle; after-cursor resumes past an entry.
	asc, err := f.service.ListHistory(ctx, defect.ID, repository.HistoryQuery{Order: domain.HistoryOrderAsc})
	require.NoError(t, err)
	assert.Equal(t, domain.EventCreated, asc[0].EventType)

	rest, err := f.service.ListHistory(ctx, defect.ID, repository.HistoryQuery{
		Order: domain.HistoryOrderAsc,
		After: &asc[0].OccurredAt,
	})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, domain.EventStatusChanged, rest[0].EventType)

	limited, err := f.service.ListHistory(ctx, defect.ID, repository.HistoryQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = f.service.ListHistory(ctx, "missing", repository.HistoryQuery{})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEventsPublished(t *testing.T) {
	f := newDefectFixture()
	ctx := context.Background()

	defect := f.mustCreate(t, engineer, DefectCreateInput{})
	_, err := f.service.ChangeStatus(ctx, defect.ID, engineer, domain.DefectStatusInProgress)
	require.NoError(t, err)

	types := make([]events.EventType, 0)
	for _, event := range f.dispatcher.events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []events.EventType{events.EventDefectCreated, events.EventDefectStatusChanged}, types)
}

func strPtr(s string) *string { return &s }

func priorityPtr(p domain.DefectPriority) *domain.DefectPriority { return &p }
