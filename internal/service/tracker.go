package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/engagement/internal/domain"
)

// maxEndAttempts bounds retries of an optimistic end that lost a race with
// another writer on the same row.
const maxEndAttempts = 3

// SessionTracker owns the start/end state machine for study sessions and
// keeps at most one active session per (user, subspace) key.
type SessionTracker struct {
	sessions   domain.SessionStore
	staleAfter time.Duration
}

// NewSessionTracker creates a new SessionTracker. Active sessions older than
// staleAfter are force-ended before a new start on their key; a non-positive
// value uses DefaultStaleAfter.
func NewSessionTracker(sessions domain.SessionStore, staleAfter time.Duration) *SessionTracker {
	if staleAfter <= 0 {
		staleAfter = domain.DefaultStaleAfter
	}
	return &SessionTracker{sessions: sessions, staleAfter: staleAfter}
}

// StaleAfter returns the tracker's staleness threshold.
func (t *SessionTracker) StaleAfter() time.Duration {
	return t.staleAfter
}

// Start returns the key's active session if there is one, otherwise it
// creates a new one starting at now. A stale active session is force-ended
// first. Concurrent callers for the same key all observe the same session.
func (t *SessionTracker) Start(ctx context.Context, userID, subjectID, subspaceID string, now time.Time) (*domain.Session, error) {
	session, _, err := t.start(ctx, userID, subjectID, subspaceID, now)
	return session, err
}

// start is Start that also reports the session reconciliation closed, if any.
func (t *SessionTracker) start(ctx context.Context, userID, subjectID, subspaceID string, now time.Time) (*domain.Session, *domain.Session, error) {
	if userID == "" || subjectID == "" || subspaceID == "" {
		return nil, nil, fmt.Errorf("%w: user, subject and subspace are required", domain.ErrInvalidInput)
	}

	reconciled, err := t.ReconcileStale(ctx, userID, subspaceID, now, t.staleAfter)
	if err != nil {
		return nil, nil, err
	}

	session := &domain.Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		SubjectID:  subjectID,
		SubspaceID: subspaceID,
		StartTime:  now,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	stored, created, err := t.sessions.InsertIfNoActive(ctx, session)
	if err != nil {
		return nil, reconciled, storeErr("insert session", err)
	}
	if created {
		slog.Debug("session started", "session_id", stored.ID, "user_id", userID, "subspace_id", subspaceID)
	} else {
		slog.Debug("session resumed", "session_id", stored.ID, "user_id", userID, "subspace_id", subspaceID)
	}
	return stored, reconciled, nil
}

// End closes the session at now. Ending an ended session returns it unchanged.
func (t *SessionTracker) End(ctx context.Context, sessionID string, now time.Time, callerUserID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	for range maxEndAttempts {
		session, err := t.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, storeErr("get session", err)
		}
		if session.UserID != callerUserID {
			return nil, domain.ErrUnauthorized
		}
		if !session.IsActive {
			return session, nil
		}

		ended, err := t.sessions.UpdateEnd(ctx, session.ID, session.Version, now, domain.SessionMinutes(session.StartTime, now))
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, storeErr("end session", err)
		}
		return ended, nil
	}
	return nil, fmt.Errorf("end session %s: %w", sessionID, domain.ErrVersionConflict)
}

// GetActive returns the key's active session, or nil.
func (t *SessionTracker) GetActive(ctx context.Context, userID, subspaceID string) (*domain.Session, error) {
	active, err := t.sessions.QueryActive(ctx, domain.SessionKey{UserID: userID, SubspaceID: subspaceID})
	if err != nil {
		return nil, storeErr("query active session", err)
	}
	return active, nil
}

// ReconcileStale force-ends the key's active session if it started more than
// staleAfter before now. The session is closed at startTime+staleAfter, so it
// is credited with exactly staleAfter. It returns the force-ended session, or
// nil if nothing was stale. A non-positive staleAfter uses DefaultStaleAfter.
func (t *SessionTracker) ReconcileStale(ctx context.Context, userID, subspaceID string, now time.Time, staleAfter time.Duration) (*domain.Session, error) {
	if staleAfter <= 0 {
		staleAfter = domain.DefaultStaleAfter
	}

	active, err := t.GetActive(ctx, userID, subspaceID)
	if err != nil || active == nil {
		return nil, err
	}
	if now.Sub(active.StartTime) <= staleAfter {
		return nil, nil
	}

	cutoff := active.StartTime.Add(staleAfter)
	ended, err := t.sessions.UpdateEnd(ctx, active.ID, active.Version, cutoff, domain.SessionMinutes(active.StartTime, cutoff))
	if errors.Is(err, domain.ErrVersionConflict) {
		// Someone else ended it first; nothing left to reconcile.
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("reconcile stale session", err)
	}
	if ended.EndTime == nil || !ended.EndTime.Equal(cutoff) {
		// Ended normally by another caller in the meantime.
		return nil, nil
	}

	slog.Info("reconciled stale session",
		"session_id", ended.ID,
		"user_id", userID,
		"subspace_id", subspaceID,
		"duration_minutes", ended.DurationMinutes,
	)
	return ended, nil
}

// Sessions lists the key's sessions, newest first.
func (t *SessionTracker) Sessions(ctx context.Context, userID, subspaceID string) ([]domain.Session, error) {
	sessions, err := t.sessions.QueryByKey(ctx, domain.SessionKey{UserID: userID, SubspaceID: subspaceID})
	if err != nil {
		return nil, storeErr("query sessions", err)
	}
	return sessions, nil
}
