package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/defects-service/internal/access"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/policy"
	"github.com/spec-kit/defects-service/internal/repository"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// CommentService manages defect discussion. Any project member, Observers
// included, may comment; moderation is author-or-Manager. Every mutation
// appends to the same audit trail the defect service writes.
type CommentService struct {
	comments repository.DefectCommentRepository
	defects  repository.DefectRepository
	access   access.ProjectAccess
}

// NewCommentService constructs the service.
func NewCommentService(comments repository.DefectCommentRepository, defects repository.DefectRepository, projectAccess access.ProjectAccess) *CommentService {
	return &CommentService{comments: comments, defects: defects, access: projectAccess}
}

// Add appends a comment for any member of the defect's project.
func (s *CommentService) Add(ctx context.Context, defectID string, actor domain.Actor, text string) (*domain.DefectComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", nil)
	}
	if len(text) > domain.MaxCommentLength {
		return nil, apperrors.NewValidationError("comment too long", map[string]any{"max": domain.MaxCommentLength})
	}

	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, defect.ProjectID, actor.ID); err != nil {
		return nil, err
	}

	comment := &domain.DefectComment{
		ID:       uuid.NewString(),
		DefectID: defectID,
		AuthorID: actor.ID,
		Text:     text,
	}
	history := &domain.DefectHistory{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		ActorID:   actor.ID,
		EventType: domain.EventCommentAdded,
		Payload:   map[string]any{"commentId": comment.ID},
	}
	if err := s.comments.Create(ctx, comment, history); err != nil {
		return nil, err
	}
	return comment, nil
}

// List returns a defect's comments oldest first, optionally after a cursor.
func (s *CommentService) List(ctx context.Context, defectID string, actor domain.Actor, after *time.Time, limit int) ([]domain.DefectComment, error) {
	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, defect.ProjectID, actor.ID); err != nil {
		return nil, err
	}
	return s.comments.ListByDefect(ctx, defectID, after, limit)
}

// Edit rewrites a comment's text. Author or Manager only.
func (s *CommentService) Edit(ctx context.Context, defectID, commentID string, actor domain.Actor, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError("comment text is required", nil)
	}

	comment, err := s.comments.GetByID(ctx, defectID, commentID)
	if err != nil {
		return err
	}
	if !policy.CanModerateComment(actor, comment.AuthorID == actor.ID) {
		return apperrors.NewForbidden("only the author or a Manager can edit a comment")
	}

	comment.Text = text
	history := &domain.DefectHistory{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		ActorID:   actor.ID,
		EventType: domain.EventCommentEdited,
		Payload:   map[string]any{"commentId": commentID},
	}
	return s.comments.Update(ctx, comment, history)
}

// Delete removes a comment. Author or Manager only.
func (s *CommentService) Delete(ctx context.Context, defectID, commentID string, actor domain.Actor) error {
	comment, err := s.comments.GetByID(ctx, defectID, commentID)
	if err != nil {
		return err
	}
	if !policy.CanModerateComment(actor, comment.AuthorID == actor.ID) {
		return apperrors.NewForbidden("only the author or a Manager can delete a comment")
	}

	history := &domain.DefectHistory{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		ActorID:   actor.ID,
		EventType: domain.EventCommentDeleted,
		Payload:   map[string]any{"commentId": commentID},
	}
	return s.comments.Delete(ctx, defectID, commentID, history)
}

func (s *CommentService) requireMember(ctx context.Context, projectID, userID string) error {
	isMember, err := s.access.IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperrors.NewForbidden("not a member of this project")
	}
	return nil
}
