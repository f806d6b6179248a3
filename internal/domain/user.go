package domain

import "time"

// User is an account known to the system. Role is the global role carried
// into tokens; project membership rows refine access per project.
type User struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	Role         ProjectRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
