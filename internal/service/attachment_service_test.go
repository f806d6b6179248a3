package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/storage"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

type fakeAttachmentRepo struct {
	store       *memStore
	attachments map[string]*domain.DefectAttachment
}

func newFakeAttachmentRepo(store *memStore) *fakeAttachmentRepo {
	return &fakeAttachmentRepo{store: store, attachments: make(map[string]*domain.DefectAttachment)}
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.DefectAttachment, history *domain.DefectHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	attachment.UploadedAt = r.store.tick()
	stored := *attachment
	r.attachments[attachment.ID] = &stored
	r.store.appendHistory([]*domain.DefectHistory{history})
	return nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, defectID, attachmentID string, history *domain.DefectHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.attachments[attachmentID]
	if !ok || stored.DefectID != defectID {
		return apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
	}
	delete(r.attachments, attachmentID)
	r.store.appendHistory([]*domain.DefectHistory{history})
	return nil
}

func (r *fakeAttachmentRepo) GetByID(_ context.Context, defectID, attachmentID string) (*domain.DefectAttachment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.attachments[attachmentID]
	if !ok || stored.DefectID != defectID {
		return nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
	}
	out := *stored
	return &out, nil
}

func (r *fakeAttachmentRepo) ListByDefect(_ context.Context, defectID string) ([]domain.DefectAttachment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.DefectAttachment
	for _, attachment := range r.attachments {
		if attachment.DefectID == defectID {
			out = append(out, *attachment)
		}
	}
	return out, nil
}

type attachmentFixture struct {
	attachments *AttachmentService
	defects     *DefectService
	defect      *domain.Defect
}

func newAttachmentFixture(t *testing.T) *attachmentFixture {
	t.Helper()
	store := newMemStore()
	projectAccess := newFakeAccess()
	projectAccess.addMember("proj-1", manager.ID, domain.RoleManager)
	projectAccess.addMember("proj-1", engineer.ID, domain.RoleEngineer)
	projectAccess.addMember("proj-1", observer.ID, domain.RoleObserver)

	defectRepo := &fakeDefectRepo{store: store}
	defectService := NewDefectService(DefectDependencies{
		DefectRepo:  defectRepo,
		HistoryRepo: &fakeHistoryRepo{store: store},
		Access:      projectAccess,
	})
	attachmentService := NewAttachmentService(
		newFakeAttachmentRepo(store),
		defectRepo,
		projectAccess,
		storage.NewFileStore(t.TempDir()),
	)

	defect, err := defectService.Create(context.Background(), engineer, DefectCreateInput{
		ProjectID: "proj-1",
		Title:     "crash on startup",
	})
	require.NoError(t, err)

	return &attachmentFixture{attachments: attachmentService, defects: defectService, defect: defect}
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	uploaded, err := f.attachments.Upload(ctx, f.defect.ID, engineer, AttachmentUpload{
		FileName: "crash report.log",
		Content:  strings.NewReader("panic: nil pointer"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len("panic: nil pointer")), uploaded.SizeBytes)
	assert.Equal(t, "application/octet-stream", uploaded.ContentType)
	assert.NotContains(t, uploaded.StorageKey, " ")

	reader, meta, err := f.attachments.Open(ctx, f.defect.ID, uploaded.ID, observer)
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "panic: nil pointer", string(content))
	assert.Equal(t, "crash report.log", meta.FileName)

	listed, err := f.attachments.List(ctx, f.defect.ID, observer)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestAttachmentUploadRejections(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	_, err := f.attachments.Upload(ctx, f.defect.ID, observer, AttachmentUpload{
		FileName: "notes.txt",
		Content:  strings.NewReader("x"),
	})
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.attachments.Upload(ctx, f.defect.ID, engineer, AttachmentUpload{
		FileName: "payload.exe",
		Content:  strings.NewReader("x"),
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestAttachmentDelete(t *testing.T) {
	f := newAttachmentFixture(t)
	ctx := context.Background()

	uploaded, err := f.attachments.Upload(ctx, f.defect.ID, engineer, AttachmentUpload{
		FileName: "screenshot.png",
		Content:  strings.NewReader("bytes"),
	})
	require.NoError(t, err)

	other := domain.Actor{ID: "user-eng-2", Role: domain.RoleEngineer}
	err = f.attachments.Delete(ctx, f.defect.ID, uploaded.ID, other)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.attachments.Delete(ctx, f.defect.ID, uploaded.ID, engineer))

	_, _, err = f.attachments.Open(ctx, f.defect.ID, uploaded.ID, engineer)
	assert.True(t, apperrors.IsNotFound(err))
}
