package domain

import (
	"context"
	"time"
)

// MinSessionMinutes is the floor applied to every session duration.
const MinSessionMinutes = 0.5

// DefaultStaleAfter is the age past which an active session is assumed to
// belong to a vanished device.
const DefaultStaleAfter = 180 * time.Minute

// SessionKey identifies the at-most-one active session slot.
type SessionKey struct {
	UserID     string
	SubspaceID string
}

// Session is a timed study session on a single subspace.
type Session struct {
	ID              string
	UserID          string
	SubjectID       string
	SubspaceID      string
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes float64
	IsActive        bool
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key returns the session's (user, subspace) key.
func (s *Session) Key() SessionKey {
	return SessionKey{UserID: s.UserID, SubspaceID: s.SubspaceID}
}

// SessionMinutes returns the duration recorded for a session running from
// start to end. Clock skew (end before start) yields the floor.
func SessionMinutes(start, end time.Time) float64 {
	return max(MinSessionMinutes, end.Sub(start).Minutes())
}

// SessionStore persists sessions. Implementations must make InsertIfNoActive
// atomic with respect to the active-session check for the key.
type SessionStore interface {
	// InsertIfNoActive inserts session unless the key already has an active
	// row, in which case that row is returned and created is false.
	InsertIfNoActive(ctx context.Context, session *Session) (stored *Session, created bool, err error)

	// UpdateEnd ends the session if its version still equals expectedVersion.
	// If the session is already ended the current row is returned unchanged.
	UpdateEnd(ctx context.Context, id string, expectedVersion int64, endTime time.Time, durationMinutes float64) (*Session, error)

	GetByID(ctx context.Context, id string) (*Session, error)

	// QueryByKey returns all sessions for the key, newest start first.
	QueryByKey(ctx context.Context, key SessionKey) ([]Session, error)

	// QueryActive returns the active session for the key, or nil if none.
	QueryActive(ctx context.Context, key SessionKey) (*Session, error)

	// LatestByUser returns the session with the greatest start time across
	// all of the user's subspaces, or nil if the user has none. Ties go to the
	// most recently created subspace.
	LatestByUser(ctx context.Context, userID string) (*Session, error)
}
