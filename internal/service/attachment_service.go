package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/defects-service/internal/access"
	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/policy"
	"github.com/spec-kit/defects-service/internal/repository"
	"github.com/spec-kit/defects-service/internal/storage"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".pdf":  {},
	".log":  {},
	".txt":  {},
}

// AttachmentUpload describes one incoming file.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// AttachmentService stores attachment files and their metadata. Engineers and
// Managers upload; any member downloads; uploader or Manager deletes. Every
// add and delete appends to the defect's audit trail.
type AttachmentService struct {
	attachments repository.DefectAttachmentRepository
	defects     repository.DefectRepository
	access      access.ProjectAccess
	store       storage.Store
}

// NewAttachmentService constructs the service.
func NewAttachmentService(attachments repository.DefectAttachmentRepository, defects repository.DefectRepository, projectAccess access.ProjectAccess, store storage.Store) *AttachmentService {
	return &AttachmentService{
		attachments: attachments,
		defects:     defects,
		access:      projectAccess,
		store:       store,
	}
}

// Upload stores one file and records its metadata.
func (s *AttachmentService) Upload(ctx context.Context, defectID string, actor domain.Actor, upload AttachmentUpload) (*domain.DefectAttachment, error) {
	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, defect.ProjectID, actor.ID); err != nil {
		return nil, err
	}
	if !policy.CanUploadAttachment(actor) {
		return nil, apperrors.NewForbidden("role cannot upload attachments")
	}

	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, apperrors.NewValidationError("file type not allowed", map[string]any{"extension": ext})
	}

	id := uuid.NewString()
	key := fmt.Sprintf("%s__%s", id, storage.SanitizeFileName(upload.FileName))
	size, err := s.store.Save(defectID, key, upload.Content)
	if err != nil {
		return nil, err
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	attachment := &domain.DefectAttachment{
		ID:           id,
		DefectID:     defectID,
		UploadedByID: actor.ID,
		FileName:     upload.FileName,
		ContentType:  contentType,
		SizeBytes:    size,
		StorageKey:   key,
	}
	history := &domain.DefectHistory{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		ActorID:   actor.ID,
		EventType: domain.EventAttachmentAdded,
		Payload:   map[string]any{"id": attachment.ID, "fileName": attachment.FileName},
	}
	if err := s.attachments.Create(ctx, attachment, history); err != nil {
		// keep storage consistent with metadata
		_ = s.store.Remove(defectID, key)
		return nil, err
	}
	return attachment, nil
}

// List returns a defect's attachment metadata, newest first.
func (s *AttachmentService) List(ctx context.Context, defectID string, actor domain.Actor) ([]domain.DefectAttachment, error) {
	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, defect.ProjectID, actor.ID); err != nil {
		return nil, err
	}
	return s.attachments.ListByDefect(ctx, defectID)
}

// Open returns the file content for download. Any member may read.
func (s *AttachmentService) Open(ctx context.Context, defectID, attachmentID string, actor domain.Actor) (io.ReadCloser, *domain.DefectAttachment, error) {
	defect, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireMember(ctx, defect.ProjectID, actor.ID); err != nil {
		return nil, nil, err
	}

	attachment, err := s.attachments.GetByID(ctx, defectID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.store.Open(defectID, attachment.StorageKey)
	if err != nil {
		return nil, nil, apperrors.NewNotFound("attachment content", map[string]any{"id": attachmentID})
	}
	return reader, attachment, nil
}

// Delete removes the file and its metadata. Uploader or Manager only.
func (s *AttachmentService) Delete(ctx context.Context, defectID, attachmentID string, actor domain.Actor) error {
	attachment, err := s.attachments.GetByID(ctx, defectID, attachmentID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteAttachment(actor, attachment.UploadedByID == actor.ID) {
		return apperrors.NewForbidden("only the uploader or a Manager can delete an attachment")
	}

	history := &domain.DefectHistory{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		ActorID:   actor.ID,
		EventType: domain.EventAttachmentDeleted,
		Payload:   map[string]any{"id": attachmentID, "fileName": attachment.FileName},
	}
	if err := s.attachments.Delete(ctx, defectID, attachmentID, history); err != nil {
		return err
	}
	return s.store.Remove(defectID, attachment.StorageKey)
}

func (s *AttachmentService) requireMember(ctx context.Context, projectID, userID string) error {
	isMember, err := s.access.IsMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperrors.NewForbidden("not a member of this project")
	}
	return nil
}
