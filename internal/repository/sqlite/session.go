package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/engagement/internal/domain"
)

const sessionColumns = `id, user_id, subject_id, subspace_id, start_time, end_time,
	duration_minutes, is_active, version, created_at, updated_at`

// SessionStore implements domain.SessionStore using SQLite. The partial
// unique index on active rows makes the (user, subspace) key a mutual
// exclusion token across every process sharing the database.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SQLite-backed SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db.SqlDB}
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SessionStore) InsertIfNoActive(ctx context.Context, session *domain.Session) (*domain.Session, bool, error) {
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = session.StartTime
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// DO NOTHING swallows the conflict on the one-active index; the follow-up
	// read inside the same transaction then sees the row that won.
	result, err := tx.ExecContext(ctx,
		`INSERT INTO study_sessions (id, user_id, subject_id, subspace_id, start_time,
		 duration_minutes, is_active, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, 1, 1, ?, ?)
		 ON CONFLICT DO NOTHING`,
		session.ID, session.UserID, session.SubjectID, session.SubspaceID,
		formatTime(session.StartTime), formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert study session: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	stored, err := queryActive(ctx, tx, session.Key())
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("insert study session %s: conflicted without an active row", session.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return stored, inserted == 1 && stored.ID == session.ID, nil
}

// UpdateEnd stamps updated_at with endTime so every stored instant comes from
// the caller's clock.
func (r *SessionStore) UpdateEnd(ctx context.Context, id string, expectedVersion int64, endTime time.Time, durationMinutes float64) (*domain.Session, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE study_sessions SET
		 end_time = ?, duration_minutes = ?, is_active = 0, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND is_active = 1`,
		formatTime(endTime), durationMinutes, formatTime(endTime), id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("end study session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == 0 && current.IsActive {
		return nil, domain.ErrVersionConflict
	}
	return current, nil
}

func (r *SessionStore) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get study session: %w", err)
	}
	return s, nil
}

func (r *SessionStore) QueryByKey(ctx context.Context, key domain.SessionKey) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions
		 WHERE user_id = ? AND subspace_id = ?
		 ORDER BY start_time DESC, id DESC`, key.UserID, key.SubspaceID)
	if err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionStore) QueryActive(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	return queryActive(ctx, r.db, key)
}

func (r *SessionStore) LatestByUser(ctx context.Context, userID string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.subject_id, s.subspace_id, s.start_time, s.end_time,
		 s.duration_minutes, s.is_active, s.version, s.created_at, s.updated_at
		 FROM study_sessions s
		 LEFT JOIN subspaces sp ON sp.id = s.subspace_id
		 WHERE s.user_id = ?
		 ORDER BY s.start_time DESC, sp.created_at DESC, s.id DESC
		 LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest study session: %w", err)
	}
	return s, nil
}

func queryActive(ctx context.Context, q rowQueryer, key domain.SessionKey) (*domain.Session, error) {
	s, err := scanSession(q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions
		 WHERE user_id = ? AND subspace_id = ? AND is_active = 1`, key.UserID, key.SubspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active study session: %w", err)
	}
	return s, nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s                               domain.Session
		startTime, createdAt, updatedAt string
		endTime                         sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.SubjectID, &s.SubspaceID, &startTime, &endTime,
		&s.DurationMinutes, &s.IsActive, &s.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if s.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	if endTime.Valid {
		t, err := parseTime(endTime.String)
		if err != nil {
			return nil, err
		}
		s.EndTime = &t
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ domain.SessionStore = (*SessionStore)(nil)
