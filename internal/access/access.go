// Package access answers the membership questions the core consumes:
// project existence, membership role lookups and user existence.
package access

import (
	"context"

	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/repository"
)

// ProjectAccess is the collaborator interface the core depends on.
type ProjectAccess interface {
	ProjectExists(ctx context.Context, projectID string) (bool, error)
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	IsManager(ctx context.Context, projectID, userID string) (bool, error)
	IsEngineer(ctx context.Context, projectID, userID string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
}

type projectAccess struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
}

// NewProjectAccess builds the repository-backed implementation.
func NewProjectAccess(projects repository.ProjectRepository, users repository.UserRepository) ProjectAccess {
	return &projectAccess{projects: projects, users: users}
}

func (a *projectAccess) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	return a.projects.Exists(ctx, projectID)
}

func (a *projectAccess) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	_, ok, err := a.projects.MemberRole(ctx, projectID, userID)
	return ok, err
}

func (a *projectAccess) IsManager(ctx context.Context, projectID, userID string) (bool, error) {
	return a.hasRole(ctx, projectID, userID, domain.RoleManager)
}

func (a *projectAccess) IsEngineer(ctx context.Context, projectID, userID string) (bool, error) {
	return a.hasRole(ctx, projectID, userID, domain.RoleEngineer)
}

func (a *projectAccess) hasRole(ctx context.Context, projectID, userID string, role domain.ProjectRole) (bool, error) {
	got, ok, err := a.projects.MemberRole(ctx, projectID, userID)
	if err != nil || !ok {
		return false, err
	}
	return got == role, nil
}

func (a *projectAccess) UserExists(ctx context.Context, userID string) (bool, error) {
	return a.users.Exists(ctx, userID)
}
