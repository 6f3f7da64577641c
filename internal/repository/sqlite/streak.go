package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/msomdec/engagement/internal/domain"
)

// StreakStore implements domain.StreakStore using SQLite.
type StreakStore struct {
	db *sql.DB
}

// NewStreakStore creates a new SQLite-backed StreakStore.
func NewStreakStore(db *DB) *StreakStore {
	return &StreakStore{db: db.SqlDB}
}

func (r *StreakStore) Get(ctx context.Context, userID string) (*domain.StreakState, error) {
	state := &domain.StreakState{UserID: userID}
	var last sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT streak_count, last_activity_date, timezone FROM streaks WHERE user_id = ?`, userID,
	).Scan(&state.StreakCount, &last, &state.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}

	if last.Valid {
		d, err := civil.ParseDate(last.String)
		if err != nil {
			return nil, fmt.Errorf("parse last activity date %q: %w", last.String, err)
		}
		state.LastActivityDate = &d
	}
	return state, nil
}

// Put upserts the state. The ISO date column compares lexicographically, so
// the WHERE clause refuses any write that moves the date backward.
func (r *StreakStore) Put(ctx context.Context, state *domain.StreakState) (bool, error) {
	if state.StreakCount < 0 {
		return false, fmt.Errorf("%w: negative streak count", domain.ErrInvalidInput)
	}

	var last sql.NullString
	if state.LastActivityDate != nil {
		last = sql.NullString{String: state.LastActivityDate.String(), Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO streaks (user_id, streak_count, last_activity_date, timezone, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   streak_count = excluded.streak_count,
		   last_activity_date = excluded.last_activity_date,
		   timezone = excluded.timezone,
		   updated_at = excluded.updated_at
		 WHERE streaks.last_activity_date IS NULL
		    OR (excluded.last_activity_date IS NOT NULL
		        AND excluded.last_activity_date >= streaks.last_activity_date)`,
		state.UserID, state.StreakCount, last, state.Timezone, formatTime(time.Now()),
	)
	if err != nil {
		return false, fmt.Errorf("put streak: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

var _ domain.StreakStore = (*StreakStore)(nil)
