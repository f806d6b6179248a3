package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/defects-service/internal/access"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/repository"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// ProjectService manages projects and membership. Mechanical CRUD; the
// interesting rules all live in the defect lifecycle.
type ProjectService struct {
	projects repository.ProjectRepository
	access   access.ProjectAccess
}

// NewProjectService constructs the service.
func NewProjectService(projects repository.ProjectRepository, projectAccess access.ProjectAccess) *ProjectService {
	return &ProjectService{projects: projects, access: projectAccess}
}

// Create registers a new project. Manager-only.
func (s *ProjectService) Create(ctx context.Context, actor domain.Actor, name, description string) (*domain.Project, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("only Manager can create projects")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("project name required", nil)
	}

	project := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Get returns a project by id, excluding soft-deleted.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// List returns all non-deleted projects.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx)
}

// Delete soft-deletes a project. Manager-only.
func (s *ProjectService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.IsManager() {
		return apperrors.NewForbidden("only Manager can delete projects")
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	project.IsDeleted = true
	return s.projects.Update(ctx, project)
}

// AddMember adds or updates a user's membership. Manager-only.
func (s *ProjectService) AddMember(ctx context.Context, actor domain.Actor, projectID, userID string, role domain.ProjectRole) (*domain.ProjectMember, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("only Manager can manage members")
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	exists, err := s.access.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewValidationError("user not found", map[string]any{"user_id": userID})
	}

	member := &domain.ProjectMember{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.projects.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember drops a user's membership. Manager-only.
func (s *ProjectService) RemoveMember(ctx context.Context, actor domain.Actor, projectID, userID string) error {
	if !actor.IsManager() {
		return apperrors.NewForbidden("only Manager can manage members")
	}
	return s.projects.RemoveMember(ctx, projectID, userID)
}

// ListMembers returns a project's membership rows.
func (s *ProjectService) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.projects.ListMembers(ctx, projectID)
}
