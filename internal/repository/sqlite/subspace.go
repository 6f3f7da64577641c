package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/engagement/internal/domain"
)

// SubspaceRepository implements domain.SubspaceRepository using SQLite.
type SubspaceRepository struct {
	db *sql.DB
}

// NewSubspaceRepository creates a new SQLite-backed SubspaceRepository.
func NewSubspaceRepository(db *DB) *SubspaceRepository {
	return &SubspaceRepository{db: db.SqlDB}
}

func (r *SubspaceRepository) Create(ctx context.Context, subspace *domain.Subspace) error {
	if subspace.CreatedAt.IsZero() {
		subspace.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subspaces (id, user_id, subject_id, name, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		subspace.ID, subspace.UserID, subspace.SubjectID, subspace.Name, formatTime(subspace.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: subspace %q already exists", domain.ErrInvalidInput, subspace.Name)
		}
		return fmt.Errorf("insert subspace: %w", err)
	}
	return nil
}

func (r *SubspaceRepository) GetByID(ctx context.Context, id string) (*domain.Subspace, error) {
	sp, err := scanSubspace(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, subject_id, name, created_at FROM subspaces WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query subspace by id: %w", err)
	}
	return sp, nil
}

func (r *SubspaceRepository) ListByUser(ctx context.Context, userID string) ([]domain.Subspace, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, subject_id, name, created_at FROM subspaces
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subspaces: %w", err)
	}
	defer rows.Close()

	var subspaces []domain.Subspace
	for rows.Next() {
		sp, err := scanSubspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subspace: %w", err)
		}
		subspaces = append(subspaces, *sp)
	}
	return subspaces, rows.Err()
}

func (r *SubspaceRepository) LatestByUser(ctx context.Context, userID string) (*domain.Subspace, error) {
	sp, err := scanSubspace(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, subject_id, name, created_at FROM subspaces
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest subspace: %w", err)
	}
	return sp, nil
}

func scanSubspace(row rowScanner) (*domain.Subspace, error) {
	var sp domain.Subspace
	var createdAt string
	if err := row.Scan(&sp.ID, &sp.UserID, &sp.SubjectID, &sp.Name, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	sp.CreatedAt = t
	return &sp, nil
}

var _ domain.SubspaceRepository = (*SubspaceRepository)(nil)
