package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defects-service/internal/domain"
)

// HistoryQuery bounds a page of the audit trail.
type HistoryQuery struct {
	After *time.Time
	Limit int
	Order domain.HistoryOrder
}

// DefectHistoryRepository reads the append-only audit trail. Appends that
// accompany a defect write go through DefectRepository.Save in the same
// transaction; Append here serves collaborators (comments, attachments)
// whose history rows commit with their own writes.
type DefectHistoryRepository interface {
	Append(ctx context.Context, entry *domain.DefectHistory) error
	List(ctx context.Context, defectID string, query HistoryQuery) ([]domain.DefectHistory, error)
}

type defectHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewDefectHistoryRepository builds repository.
func NewDefectHistoryRepository(pool *pgxpool.Pool) DefectHistoryRepository {
	return &defectHistoryRepository{pool: pool}
}

func (r *defectHistoryRepository) Append(ctx context.Context, entry *domain.DefectHistory) error {
	const query = `
        INSERT INTO defect_history (id, defect_id, actor_id, event_type, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING occurred_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.DefectID,
		entry.ActorID,
		entry.EventType,
		entry.Payload,
	).Scan(&entry.OccurredAt)
}

func (r *defectHistoryRepository) List(ctx context.Context, defectID string, query HistoryQuery) ([]domain.DefectHistory, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = domain.DefaultHistoryPageSize
	}
	if limit > domain.MaxHistoryPageSize {
		limit = domain.MaxHistoryPageSize
	}

	direction := "DESC"
	if query.Order == domain.HistoryOrderAsc {
		direction = "ASC"
	}

	args := []any{defectID}
	afterClause := ""
	if query.After != nil {
		args = append(args, *query.After)
		afterClause = "AND occurred_at > $2"
	}

	sql := fmt.Sprintf(`
        SELECT id, defect_id, actor_id, event_type, payload, occurred_at
        FROM defect_history
        WHERE defect_id=$1 %s
        ORDER BY occurred_at %s
        LIMIT %d`, afterClause, direction, limit)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DefectHistory
	for rows.Next() {
		var entry domain.DefectHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.DefectID,
			&entry.ActorID,
			&entry.EventType,
			&entry.Payload,
			&entry.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
