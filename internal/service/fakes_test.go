package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/defects-service/internal/access"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/events"
	"github.com/spec-kit/defects-service/internal/repository"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// memStore backs the in-memory repository fakes so defect rows and their
// history share one view, like the real transactional repositories do.
type memStore struct {
	mu      sync.Mutex
	defects map[string]*domain.Defect
	history []domain.DefectHistory
	clock   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		defects: make(map[string]*domain.Defect),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) appendHistory(entries []*domain.DefectHistory) {
	for _, entry := range entries {
		stored := *entry
		stored.OccurredAt = m.tick()
		m.history = append(m.history, stored)
	}
}

func copyDefect(d *domain.Defect) *domain.Defect {
	out := *d
	out.Tags = append([]string(nil), d.Tags...)
	return &out
}

type fakeDefectRepo struct {
	store *memStore
}

func (r *fakeDefectRepo) Create(_ context.Context, defect *domain.Defect, history []*domain.DefectHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := r.store.tick()
	defect.CreatedAt = now
	defect.UpdatedAt = now
	r.store.defects[defect.ID] = copyDefect(defect)
	r.store.appendHistory(history)
	return nil
}

func (r *fakeDefectRepo) GetByID(_ context.Context, id string) (*domain.Defect, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	defect, ok := r.store.defects[id]
	if !ok || defect.IsDeleted {
		return nil, apperrors.NewNotFound("defect", map[string]any{"id": id})
	}
	return copyDefect(defect), nil
}

func (r *fakeDefectRepo) List(_ context.Context) ([]domain.Defect, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Defect
	for _, defect := range r.store.defects {
		if !defect.IsDeleted {
			out = append(out, *copyDefect(defect))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeDefectRepo) ListByProject(_ context.Context, projectID string) ([]domain.Defect, error) {
	all, _ := r.List(context.Background())
	out := all[:0]
	for _, defect := range all {
		if defect.ProjectID == projectID {
			out = append(out, defect)
		}
	}
	return out, nil
}

func (r *fakeDefectRepo) Save(_ context.Context, defect *domain.Defect, expectedVersion string, _ *repository.TagOps, history []*domain.DefectHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.defects[defect.ID]
	if !ok || stored.IsDeleted {
		return apperrors.NewNotFound("defect", map[string]any{"id": defect.ID})
	}
	if stored.Version != expectedVersion {
		return apperrors.NewConflict("defect was modified concurrently", map[string]any{"id": defect.ID})
	}
	defect.UpdatedAt = r.store.tick()
	r.store.defects[defect.ID] = copyDefect(defect)
	r.store.appendHistory(history)
	return nil
}

type fakeHistoryRepo struct {
	store *memStore
}

func (r *fakeHistoryRepo) Append(_ context.Context, entry *domain.DefectHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.appendHistory([]*domain.DefectHistory{entry})
	return nil
}

func (r *fakeHistoryRepo) List(_ context.Context, defectID string, query repository.HistoryQuery) ([]domain.DefectHistory, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	limit := query.Limit
	if limit <= 0 {
		limit = domain.DefaultHistoryPageSize
	}
	if limit > domain.MaxHistoryPageSize {
		limit = domain.MaxHistoryPageSize
	}

	var out []domain.DefectHistory
	for _, entry := range r.store.history {
		if entry.DefectID != defectID {
			continue
		}
		if query.After != nil && !entry.OccurredAt.After(*query.After) {
			continue
		}
		out = append(out, entry)
	}
	if query.Order != domain.HistoryOrderAsc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAccess struct {
	projects map[string]bool
	users    map[string]bool
	roles    map[string]domain.ProjectRole // "projectID/userID"
}

var _ access.ProjectAccess = (*fakeAccess)(nil)

func newFakeAccess() *fakeAccess {
	return &fakeAccess{
		projects: make(map[string]bool),
		users:    make(map[string]bool),
		roles:    make(map[string]domain.ProjectRole),
	}
}

func (a *fakeAccess) addMember(projectID, userID string, role domain.ProjectRole) {
	a.projects[projectID] = true
	a.users[userID] = true
	a.roles[projectID+"/"+userID] = role
}

func (a *fakeAccess) ProjectExists(_ context.Context, projectID string) (bool, error) {
	return a.projects[projectID], nil
}

func (a *fakeAccess) IsMember(_ context.Context, projectID, userID string) (bool, error) {
	_, ok := a.roles[projectID+"/"+userID]
	return ok, nil
}

func (a *fakeAccess) IsManager(_ context.Context, projectID, userID string) (bool, error) {
	return a.roles[projectID+"/"+userID] == domain.RoleManager, nil
}

func (a *fakeAccess) IsEngineer(_ context.Context, projectID, userID string) (bool, error) {
	return a.roles[projectID+"/"+userID] == domain.RoleEngineer, nil
}

func (a *fakeAccess) UserExists(_ context.Context, userID string) (bool, error) {
	return a.users[userID], nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}
