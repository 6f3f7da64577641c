package service

import (
	"context"
	"time"

	"github.com/msomdec/engagement/internal/domain"
)

// DurationAggregator answers read-only questions about time spent.
type DurationAggregator struct {
	sessions  domain.SessionStore
	subspaces domain.SubspaceRepository
}

// NewDurationAggregator creates a new DurationAggregator.
func NewDurationAggregator(sessions domain.SessionStore, subspaces domain.SubspaceRepository) *DurationAggregator {
	return &DurationAggregator{sessions: sessions, subspaces: subspaces}
}

// TotalMinutes sums the stored durations of the key's ended sessions and the
// live elapsed time of its active session, measured against now. Each
// session contributes exactly once.
func (a *DurationAggregator) TotalMinutes(ctx context.Context, userID, subspaceID string, now time.Time) (float64, error) {
	summary, err := a.Summary(ctx, userID, subspaceID, now)
	if err != nil {
		return 0, err
	}
	return summary.TotalMinutes, nil
}

// Summary is TotalMinutes plus whether a session is running.
func (a *DurationAggregator) Summary(ctx context.Context, userID, subspaceID string, now time.Time) (domain.Summary, error) {
	sessions, err := a.sessions.QueryByKey(ctx, domain.SessionKey{UserID: userID, SubspaceID: subspaceID})
	if err != nil {
		return domain.Summary{}, storeErr("query sessions", err)
	}

	var summary domain.Summary
	seen := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		if s.IsActive {
			// Live time follows the same floor as End, so ending a session
			// never makes the total jump.
			summary.TotalMinutes += domain.SessionMinutes(s.StartTime, now)
			summary.IsCurrentlyActive = true
			summary.ActiveSessionID = s.ID
			continue
		}
		summary.TotalMinutes += s.DurationMinutes
	}
	return summary, nil
}

// MostRecentSubspace picks the "continue learning" target: the subspace of
// the user's latest session, else the user's newest subspace, else nil.
func (a *DurationAggregator) MostRecentSubspace(ctx context.Context, userID string) (*domain.ContinueTarget, error) {
	latest, err := a.sessions.LatestByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("latest session", err)
	}
	if latest != nil {
		start := latest.StartTime
		return &domain.ContinueTarget{
			SubspaceID:       latest.SubspaceID,
			SubjectID:        latest.SubjectID,
			LastSessionStart: &start,
		}, nil
	}

	subspace, err := a.subspaces.LatestByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("latest subspace", err)
	}
	if subspace == nil {
		return nil, nil
	}
	return &domain.ContinueTarget{SubspaceID: subspace.ID, SubjectID: subspace.SubjectID}, nil
}
