package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
)

// WorkspaceRepository implements domain.WorkspaceRepository using PostgreSQL
type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

// GetByID retrieves a workspace by its ID
func (r *WorkspaceRepository) GetByID(id int32) (*domain.Workspace, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT id, user_id, name, created_at, updated_at
		FROM workspaces WHERE id = $1`,
		id,
	)
	workspace, err := scanWorkspace(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return workspace, nil
}

// GetByUserAuth0ID retrieves the workspace belonging to an Auth0 user
func (r *WorkspaceRepository) GetByUserAuth0ID(auth0ID string) (*domain.Workspace, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT w.id, w.user_id, w.name, w.created_at, w.updated_at
		FROM workspaces w
		JOIN users u ON u.id = w.user_id
		WHERE u.auth0_id = $1`,
		auth0ID,
	)
	workspace, err := scanWorkspace(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return workspace, nil
}

// GetAllIDs lists every workspace ID
func (r *WorkspaceRepository) GetAllIDs() ([]int32, error) {
	rows, err := r.pool.Query(context.Background(), `SELECT id FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int32{}
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateForUser provisions a user row and its workspace on first login.
// Both inserts happen in one transaction.
func (r *WorkspaceRepository) CreateForUser(auth0ID, email string, name *string) (*domain.Workspace, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var userID pgtype.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO users (auth0_id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (auth0_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`,
		auth0ID, email, pgText(name),
	).Scan(&userID)
	if err != nil {
		return nil, err
	}

	workspaceName := email
	if name != nil && *name != "" {
		workspaceName = *name
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO workspaces (user_id, name)
		VALUES ($1, $2)
		RETURNING id, user_id, name, created_at, updated_at`,
		userID, workspaceName,
	)
	workspace, err := scanWorkspace(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return workspace, nil
}

func scanWorkspace(row pgx.Row) (*domain.Workspace, error) {
	var (
		userID    pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		workspace domain.Workspace
	)
	err := row.Scan(&workspace.ID, &userID, &workspace.Name, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	workspace.UserID = uuidFromPg(userID)
	workspace.CreatedAt = createdAt.Time
	workspace.UpdatedAt = updatedAt.Time
	return &workspace, nil
}
