package domain

import "time"

// MaxCommentLength bounds comment text.
const MaxCommentLength = 10_000

// DefectComment is a discussion entry on a defect.
type DefectComment struct {
	ID        string
	DefectID  string
	AuthorID  string
	Text      string
	IsEdited  bool
	EditedAt  *time.Time
	CreatedAt time.Time
}
