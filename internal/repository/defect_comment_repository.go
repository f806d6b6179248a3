package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/persistence"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// DefectCommentRepository persists comments. Every mutation commits together
// with its history entry.
type DefectCommentRepository interface {
	Create(ctx context.Context, comment *domain.DefectComment, history *domain.DefectHistory) error
	Update(ctx context.Context, comment *domain.DefectComment, history *domain.DefectHistory) error
	Delete(ctx context.Context, defectID, commentID string, history *domain.DefectHistory) error
	GetByID(ctx context.Context, defectID, commentID string) (*domain.DefectComment, error)
	ListByDefect(ctx context.Context, defectID string, after *time.Time, limit int) ([]domain.DefectComment, error)
}

type defectCommentRepository struct {
	pool *pgxpool.Pool
}

// NewDefectCommentRepository builds repository.
func NewDefectCommentRepository(pool *pgxpool.Pool) DefectCommentRepository {
	return &defectCommentRepository{pool: pool}
}

func (r *defectCommentRepository) Create(ctx context.Context, comment *domain.DefectComment, history *domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO defect_comments (id, defect_id, author_id, text)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
		if err := tx.QueryRow(ctx, query,
			comment.ID,
			comment.DefectID,
			comment.AuthorID,
			comment.Text,
		).Scan(&comment.CreatedAt); err != nil {
			return err
		}
		return insertHistory(ctx, tx, []*domain.DefectHistory{history})
	})
}

func (r *defectCommentRepository) Update(ctx context.Context, comment *domain.DefectComment, history *domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        UPDATE defect_comments SET text=$1, is_edited=TRUE, edited_at=NOW()
        WHERE id=$2 AND defect_id=$3
        RETURNING edited_at`
		if err := tx.QueryRow(ctx, query,
			comment.Text,
			comment.ID,
			comment.DefectID,
		).Scan(&comment.EditedAt); err != nil {
			if err == pgx.ErrNoRows {
				return apperrors.NewNotFound("comment", map[string]any{"id": comment.ID})
			}
			return err
		}
		comment.IsEdited = true
		return insertHistory(ctx, tx, []*domain.DefectHistory{history})
	})
}

func (r *defectCommentRepository) Delete(ctx context.Context, defectID, commentID string, history *domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`DELETE FROM defect_comments WHERE id=$1 AND defect_id=$2`, commentID, defectID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return apperrors.NewNotFound("comment", map[string]any{"id": commentID})
		}
		return insertHistory(ctx, tx, []*domain.DefectHistory{history})
	})
}

func (r *defectCommentRepository) GetByID(ctx context.Context, defectID, commentID string) (*domain.DefectComment, error) {
	const query = `
        SELECT id, defect_id, author_id, text, is_edited, edited_at, created_at
        FROM defect_comments WHERE id=$1 AND defect_id=$2`
	var comment domain.DefectComment
	if err := r.pool.QueryRow(ctx, query, commentID, defectID).Scan(
		&comment.ID,
		&comment.DefectID,
		&comment.AuthorID,
		&comment.Text,
		&comment.IsEdited,
		&comment.EditedAt,
		&comment.CreatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("comment", map[string]any{"id": commentID})
		}
		return nil, err
	}
	return &comment, nil
}

func (r *defectCommentRepository) ListByDefect(ctx context.Context, defectID string, after *time.Time, limit int) ([]domain.DefectComment, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	args := []any{defectID, limit}
	afterClause := ""
	if after != nil {
		args = append(args, *after)
		afterClause = "AND created_at > $3"
	}

	query := `
        SELECT id, defect_id, author_id, text, is_edited, edited_at, created_at
        FROM defect_comments
        WHERE defect_id=$1 ` + afterClause + `
        ORDER BY created_at ASC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DefectComment
	for rows.Next() {
		var comment domain.DefectComment
		if err := rows.Scan(
			&comment.ID,
			&comment.DefectID,
			&comment.AuthorID,
			&comment.Text,
			&comment.IsEdited,
			&comment.EditedAt,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
