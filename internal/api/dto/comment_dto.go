package dto

import (
	"time"

	"github.com/spec-kit/defects-service/internal/domain"
)

// AddCommentRequest payload.
type AddCommentRequest struct {
	Text string `json:"text"`
}

// EditCommentRequest payload.
type EditCommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse shape.
type CommentResponse struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Text      string     `json:"text"`
	IsEdited  bool       `json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// AttachmentResponse shape.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by_id"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// FromComment maps a domain comment.
func FromComment(comment domain.DefectComment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Text:      comment.Text,
		IsEdited:  comment.IsEdited,
		EditedAt:  comment.EditedAt,
		CreatedAt: comment.CreatedAt,
	}
}

// FromAttachment maps attachment metadata.
func FromAttachment(attachment domain.DefectAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          attachment.ID,
		FileName:    attachment.FileName,
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
		UploadedBy:  attachment.UploadedByID,
		UploadedAt:  attachment.UploadedAt,
	}
}
