package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/defects-service/internal/domain"
	apperrors "github.com/spec-kit/defects-service/pkg/util"
)

// ProjectRepository manages projects and their membership rows.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
	Exists(ctx context.Context, id string) (bool, error)
	AddMember(ctx context.Context, member *domain.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error)
	MemberRole(ctx context.Context, projectID, userID string) (domain.ProjectRole, bool, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository instantiates repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (id, name, description)
        VALUES ($1,$2,$3)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		project.ID,
		project.Name,
		project.Description,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	const query = `
        UPDATE projects SET name=$1, description=$2, is_deleted=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		project.Name,
		project.Description,
		project.IsDeleted,
		project.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("project", map[string]any{"id": project.ID})
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	const query = `
        SELECT id, name, description, is_deleted, created_at, updated_at
        FROM projects WHERE id=$1 AND is_deleted = FALSE`
	var project domain.Project
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.IsDeleted,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("project", map[string]any{"id": id})
		}
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context) ([]domain.Project, error) {
	const query = `
        SELECT id, name, description, is_deleted, created_at, updated_at
        FROM projects WHERE is_deleted = FALSE ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.Description,
			&project.IsDeleted,
			&project.CreatedAt,
			&project.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, project)
	}
	return result, rows.Err()
}

func (r *projectRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE id=$1 AND is_deleted = FALSE)`, id).Scan(&exists)
	return exists, err
}

func (r *projectRepository) AddMember(ctx context.Context, member *domain.ProjectMember) error {
	const query = `
        INSERT INTO project_members (id, project_id, user_id, role)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		member.ID,
		member.ProjectID,
		member.UserID,
		member.Role,
	).Scan(&member.CreatedAt)
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("membership", map[string]any{"project_id": projectID, "user_id": userID})
	}
	return nil
}

func (r *projectRepository) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	const query = `
        SELECT id, project_id, user_id, role, created_at
        FROM project_members WHERE project_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProjectMember
	for rows.Next() {
		var member domain.ProjectMember
		if err := rows.Scan(
			&member.ID,
			&member.ProjectID,
			&member.UserID,
			&member.Role,
			&member.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *projectRepository) MemberRole(ctx context.Context, projectID, userID string) (domain.ProjectRole, bool, error) {
	var role domain.ProjectRole
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM project_members WHERE project_id=$1 AND user_id=$2`, projectID, userID).Scan(&role)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}
