package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defects-service/internal/domain"
	"github.com/spec-kit/defects-service/internal/persistence"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// TagOps carries the row-level tag rewrite accompanying a save.
type TagOps struct {
	Remove []string
	Add    []string
}

// DefectRepository encapsulates defect persistence. Soft-deleted defects are
// filtered by an explicit predicate in every read; writes are guarded by the
// version token and committed atomically with their history entries.
type DefectRepository interface {
	Create(ctx context.Context, defect *domain.Defect, history []*domain.DefectHistory) error
	GetByID(ctx context.Context, id string) (*domain.Defect, error)
	List(ctx context.Context) ([]domain.Defect, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Defect, error)
	Save(ctx context.Context, defect *domain.Defect, expectedVersion string, tags *TagOps, history []*domain.DefectHistory) error
}

type defectRepository struct {
	pool *pgxpool.Pool
}

// NewDefectRepository instantiates repository.
func NewDefectRepository(pool *pgxpool.Pool) DefectRepository {
	return &defectRepository{pool: pool}
}

const defectColumns = `id, project_id, title, description, status, priority,
       created_by_id, assigned_id, due_date, version, is_deleted,
       created_at, updated_at, closed_at`

func (r *defectRepository) Create(ctx context.Context, defect *domain.Defect, history []*domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO defects (id, project_id, title, description, status, priority,
                             created_by_id, assigned_id, due_date, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			defect.ID,
			defect.ProjectID,
			defect.Title,
			defect.Description,
			defect.Status,
			defect.Priority,
			defect.CreatedByID,
			defect.AssignedID,
			defect.DueDate,
			defect.Version,
		).Scan(&defect.CreatedAt, &defect.UpdatedAt); err != nil {
			return err
		}
		if err := insertTags(ctx, tx, defect.ID, defect.Tags); err != nil {
			return err
		}
		return insertHistory(ctx, tx, history)
	})
}

func (r *defectRepository) GetByID(ctx context.Context, id string) (*domain.Defect, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM defects WHERE id=$1 AND is_deleted = FALSE`, defectColumns)

	var defect domain.Defect
	if err := scanDefect(r.pool.QueryRow(ctx, query, id), &defect); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("defect", map[string]any{"id": id})
		}
		return nil, err
	}

	tags, err := r.loadTags(ctx, id)
	if err != nil {
		return nil, err
	}
	defect.Tags = tags
	return &defect, nil
}

func (r *defectRepository) List(ctx context.Context) ([]domain.Defect, error) {
	return r.list(ctx, "", nil)
}

func (r *defectRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Defect, error) {
	return r.list(ctx, "AND project_id=$1", []any{projectID})
}

func (r *defectRepository) list(ctx context.Context, extra string, args []any) ([]domain.Defect, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM defects
        WHERE is_deleted = FALSE %s
        ORDER BY created_at DESC`, defectColumns, extra)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Defect
	ids := []string{}
	for rows.Next() {
		var defect domain.Defect
		if err := scanDefect(rows, &defect); err != nil {
			return nil, err
		}
		result = append(result, defect)
		ids = append(ids, defect.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	tagsByDefect, err := r.loadTagsBulk(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Tags = tagsByDefect[result[i].ID]
	}
	return result, nil
}

// Save persists a full defect row guarded by the expected version token,
// applies the tag rewrite and appends history, all in one transaction. A
// stale token yields CONFLICT; a vanished row yields NOT_FOUND.
func (r *defectRepository) Save(ctx context.Context, defect *domain.Defect, expectedVersion string, tags *TagOps, history []*domain.DefectHistory) error {
	return persistence.WithinTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        UPDATE defects SET title=$1, description=$2, status=$3, priority=$4,
            assigned_id=$5, due_date=$6, is_deleted=$7, closed_at=$8,
            version=$9, updated_at=NOW()
        WHERE id=$10 AND version=$11 AND is_deleted = FALSE
        RETURNING updated_at`
		err := tx.QueryRow(ctx, query,
			defect.Title,
			defect.Description,
			defect.Status,
			defect.Priority,
			defect.AssignedID,
			defect.DueDate,
			defect.IsDeleted,
			defect.ClosedAt,
			defect.Version,
			defect.ID,
			expectedVersion,
		).Scan(&defect.UpdatedAt)
		if err == pgx.ErrNoRows {
			var exists bool
			if probeErr := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM defects WHERE id=$1 AND is_deleted = FALSE)`,
				defect.ID,
			).Scan(&exists); probeErr != nil {
				return probeErr
			}
			if exists {
				return apperrors.NewConflict("defect was modified concurrently", map[string]any{"id": defect.ID})
			}
			return apperrors.NewNotFound("defect", map[string]any{"id": defect.ID})
		}
		if err != nil {
			return err
		}

		if tags != nil {
			if err := removeTags(ctx, tx, defect.ID, tags.Remove); err != nil {
				return err
			}
			if err := insertTags(ctx, tx, defect.ID, tags.Add); err != nil {
				return err
			}
		}
		return insertHistory(ctx, tx, history)
	})
}

func (r *defectRepository) loadTags(ctx context.Context, defectID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tag FROM defect_tags WHERE defect_id=$1 ORDER BY tag`, defectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *defectRepository) loadTagsBulk(ctx context.Context, defectIDs []string) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT defect_id, tag FROM defect_tags WHERE defect_id = ANY($1) ORDER BY tag`, defectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string, len(defectIDs))
	for rows.Next() {
		var defectID, tag string
		if err := rows.Scan(&defectID, &tag); err != nil {
			return nil, err
		}
		result[defectID] = append(result[defectID], tag)
	}
	return result, rows.Err()
}

func insertTags(ctx context.Context, tx pgx.Tx, defectID string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.Exec(ctx,
			`INSERT INTO defect_tags (defect_id, tag) VALUES ($1,$2)`, defectID, tag); err != nil {
			return err
		}
	}
	return nil
}

func removeTags(ctx context.Context, tx pgx.Tx, defectID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	lowered := make([]string, len(tags))
	for i, tag := range tags {
		lowered[i] = strings.ToLower(tag)
	}
	_, err := tx.Exec(ctx,
		`DELETE FROM defect_tags WHERE defect_id=$1 AND LOWER(tag) = ANY($2)`, defectID, lowered)
	return err
}

func insertHistory(ctx context.Context, tx pgx.Tx, history []*domain.DefectHistory) error {
	for _, entry := range history {
		const query = `
        INSERT INTO defect_history (id, defect_id, actor_id, event_type, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING occurred_at`
		if err := tx.QueryRow(ctx, query,
			entry.ID,
			entry.DefectID,
			entry.ActorID,
			entry.EventType,
			entry.Payload,
		).Scan(&entry.OccurredAt); err != nil {
			return err
		}
	}
	return nil
}

type defectScanner interface {
	Scan(dest ...any) error
}

func scanDefect(row defectScanner, defect *domain.Defect) error {
	return row.Scan(
		&defect.ID,
		&defect.ProjectID,
		&defect.Title,
		&defect.Description,
		&defect.Status,
		&defect.Priority,
		&defect.CreatedByID,
		&defect.AssignedID,
		&defect.DueDate,
		&defect.Version,
		&defect.IsDeleted,
		&defect.CreatedAt,
		&defect.UpdatedAt,
		&defect.ClosedAt,
	)
}
