package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/persistence"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// DefectAttachmentRepository persists attachment metadata. Mutations commit
// together with their history entries; the bytes live in storage.Store.
type DefectAttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.DefectAttachment, history *domain.DefectHistory) error
	Delete(ctx context.Context, defectID, attachmentID string, history *domain.DefectHistory) error
	GetByID(ctx context.Context, defectID, attachmentID string) (*domain.DefectAttachment, error)
	ListByDefect(ctx context.Context, defectID string) ([]domain.DefectAttachment, error)
}

type defectAttachmentRepository struct {
	pool *pgxpool.Pool
}

// NewDefectAttachmentRepository builds repository.
func NewDefectAttachmentRepository(pool *pgxpool.Pool) DefectAttachmentRepository {
	return &defectAttachmentRepository{pool: pool}
}

const attachmentColumns = `id, defect_id, uploaded_by_id, file_name, content_type, size_bytes, storage_key, uploaded_at`

func (r *defectAttachmentRepository) Create(ctx context.Context, attachment *domain.DefectAttachment, history *domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO defect_attachments (id, defect_id, uploaded_by_id, file_name, content_type, size_bytes, storage_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING uploaded_at`
		if err := tx.QueryRow(ctx, query,
			attachment.ID,
			attachment.DefectID,
			attachment.UploadedByID,
			attachment.FileName,
			attachment.ContentType,
			attachment.SizeBytes,
			attachment.StorageKey,
		).Scan(&attachment.UploadedAt); err != nil {
			return err
		}
		return insertHistory(ctx, tx, []*domain.DefectHistory{history})
	})
}

func (r *defectAttachmentRepository) Delete(ctx context.Context, defectID, attachmentID string, history *domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`DELETE FROM defect_attachments WHERE id=$1 AND defect_id=$2`, attachmentID, defectID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
		}
		return insertHistory(ctx, tx, []*domain.DefectHistory{history})
	})
}

func (r *defectAttachmentRepository) GetByID(ctx context.Context, defectID, attachmentID string) (*domain.DefectAttachment, error) {
	const query = `
        SELECT ` + attachmentColumns + `
        FROM defect_attachments WHERE id=$1 AND defect_id=$2`
	var attachment domain.DefectAttachment
	if err := r.pool.QueryRow(ctx, query, attachmentID, defectID).Scan(
		&attachment.ID,
		&attachment.DefectID,
		&attachment.UploadedByID,
		&attachment.FileName,
		&attachment.ContentType,
		&attachment.SizeBytes,
		&attachment.StorageKey,
		&attachment.UploadedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
		}
		return nil, err
	}
	return &attachment, nil
}

func (r *defectAttachmentRepository) ListByDefect(ctx context.Context, defectID string) ([]domain.DefectAttachment, error) {
	const query = `
        SELECT ` + attachmentColumns + `
        FROM defect_attachments WHERE defect_id=$1 ORDER BY uploaded_at DESC`
	rows, err := r.pool.Query(ctx, query, defectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DefectAttachment
	for rows.Next() {
		var attachment domain.DefectAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.DefectID,
			&attachment.UploadedByID,
			&attachment.FileName,
			&attachment.ContentType,
			&attachment.SizeBytes,
			&attachment.StorageKey,
			&attachment.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
