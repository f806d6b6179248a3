package domain

import "time"

// ProjectRole enumerates membership roles within a project.
type ProjectRole string

const (
	RoleEngineer ProjectRole = "ENGINEER"
	RoleManager  ProjectRole = "MANAGER"
	RoleObserver ProjectRole = "OBSERVER"
)

// ParseRole converts a wire value into a ProjectRole.
func ParseRole(value string) (ProjectRole, bool) {
	switch ProjectRole(value) {
	case RoleEngineer, RoleManager, RoleObserver:
		return ProjectRole(value), true
	}
	return "", false
}

// Project groups defects and members.
type Project struct {
	ID          string
	Name        string
	Description string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectMember links a user to a project with a role.
type ProjectMember struct {
	ID        string
	ProjectID string
	UserID    string
	Role      ProjectRole
	CreatedAt time.Time
}
