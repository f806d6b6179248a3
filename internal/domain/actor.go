package domain

// Actor is the already-authenticated identity performing an operation. The
// core never sees credentials, only the id and global role the auth edge
// resolved.
type Actor struct {
	ID   string
	Role ProjectRole
}

// IsManager reports whether the actor holds the Manager role.
func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

// IsEngineer reports whether the actor holds the Engineer role.
func (a Actor) IsEngineer() bool {
	return a.Role == RoleEngineer
}
