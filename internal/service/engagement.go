package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/engagement/internal/clock"
	"github.com/msomdec/engagement/internal/domain"
)

// EngagementService is the entry point the application calls for session
// tracking, time totals and streaks.
type EngagementService struct {
	tracker         *SessionTracker
	aggregator      *DurationAggregator
	subspaces       domain.SubspaceRepository
	streaks         domain.StreakStore
	clock           domain.Clock
	defaultTimezone string
}

// EngagementConfig carries the service's tunables.
type EngagementConfig struct {
	StaleAfter      time.Duration
	DefaultTimezone string
}

// NewEngagementService creates a new EngagementService.
func NewEngagementService(sessions domain.SessionStore, subspaces domain.SubspaceRepository, streaks domain.StreakStore, clk domain.Clock, cfg EngagementConfig) *EngagementService {
	tz := cfg.DefaultTimezone
	if tz == "" {
		tz = "UTC"
	}
	return &EngagementService{
		tracker:         NewSessionTracker(sessions, cfg.StaleAfter),
		aggregator:      NewDurationAggregator(sessions, subspaces),
		subspaces:       subspaces,
		streaks:         streaks,
		clock:           clk,
		defaultTimezone: tz,
	}
}

// Aggregator exposes the underlying DurationAggregator.
func (s *EngagementService) Aggregator() *DurationAggregator { return s.aggregator }

// CreateSubspace registers a new subspace for the user.
func (s *EngagementService) CreateSubspace(ctx context.Context, userID, subjectID, name string) (*domain.Subspace, error) {
	name = strings.TrimSpace(name)
	if userID == "" || subjectID == "" || name == "" {
		return nil, fmt.Errorf("%w: subject and name are required", domain.ErrInvalidInput)
	}

	subspace := &domain.Subspace{
		ID:        uuid.NewString(),
		UserID:    userID,
		SubjectID: subjectID,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.subspaces.Create(ctx, subspace); err != nil {
		return nil, storeErr("create subspace", err)
	}
	return subspace, nil
}

// ListSubspaces returns the user's subspaces, newest first.
func (s *EngagementService) ListSubspaces(ctx context.Context, userID string) ([]domain.Subspace, error) {
	subspaces, err := s.subspaces.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list subspaces", err)
	}
	return subspaces, nil
}

// EnterSubspace reconciles any stale session on the key and then starts or
// resumes a session. Callers must hold the returned session id until they
// leave.
func (s *EngagementService) EnterSubspace(ctx context.Context, userID, subjectID, subspaceID string) (*domain.Session, error) {
	if err := s.checkSubspace(ctx, userID, subjectID, subspaceID); err != nil {
		return nil, err
	}

	session, reconciled, err := s.tracker.start(ctx, userID, subjectID, subspaceID, s.clock.Now())
	if reconciled != nil {
		// The forced end still counts as a day of activity.
		if serr := s.recordStreak(ctx, userID, *reconciled.EndTime); serr != nil {
			slog.Warn("record streak for reconciled session", "session_id", reconciled.ID, "error", serr)
		}
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// LeaveSubspace ends the session and feeds the streak with the local date of
// its end. Leaving an ended session repeats the streak update, which is a
// no-op for the same day, so retries after a failed streak write are safe.
func (s *EngagementService) LeaveSubspace(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	session, err := s.tracker.End(ctx, sessionID, s.clock.Now(), userID)
	if err != nil {
		return nil, err
	}
	if err := s.recordStreak(ctx, userID, *session.EndTime); err != nil {
		return nil, err
	}
	return session, nil
}

// RecordActivity counts a qualifying interaction happening now toward the
// user's streak. The date always comes from the service clock.
func (s *EngagementService) RecordActivity(ctx context.Context, userID string) (*domain.StreakState, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	if err := s.recordStreak(ctx, userID, s.clock.Now()); err != nil {
		return nil, err
	}
	state, err := s.getStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Timezone = s.zoneOf(state)
	return state, nil
}

// Summary returns the time spent on a subspace and whether a session is live.
func (s *EngagementService) Summary(ctx context.Context, userID, subspaceID string) (domain.Summary, error) {
	return s.aggregator.Summary(ctx, userID, subspaceID, s.clock.Now())
}

// ContinueLearningTarget returns where the user should resume, or nil.
func (s *EngagementService) ContinueLearningTarget(ctx context.Context, userID string) (*domain.ContinueTarget, error) {
	return s.aggregator.MostRecentSubspace(ctx, userID)
}

// Sessions lists the user's sessions on a subspace, newest first.
func (s *EngagementService) Sessions(ctx context.Context, userID, subspaceID string) ([]domain.Session, error) {
	return s.tracker.Sessions(ctx, userID, subspaceID)
}

// StreakView is the stored streak plus the count to display today.
type StreakView struct {
	State        domain.StreakState
	CurrentCount int
}

// Streak returns the user's streak as of now.
func (s *EngagementService) Streak(ctx context.Context, userID string) (*StreakView, error) {
	state, err := s.getStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Timezone = s.zoneOf(state)
	today, err := s.clock.LocalDate(s.clock.Now(), state.Timezone)
	if err != nil {
		return nil, err
	}
	return &StreakView{State: *state, CurrentCount: CurrentStreak(*state, today)}, nil
}

// SetTimezone stores the IANA zone used to resolve the user's local dates.
func (s *EngagementService) SetTimezone(ctx context.Context, userID, timezone string) (*domain.StreakState, error) {
	if timezone == "" {
		return nil, fmt.Errorf("%w: timezone is required", domain.ErrInvalidInput)
	}
	if _, err := clock.LoadLocation(timezone); err != nil {
		return nil, err
	}

	state, err := s.getStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.Timezone = timezone
	if _, err := s.streaks.Put(ctx, state); err != nil {
		return nil, storeErr("put streak", err)
	}
	return state, nil
}

func (s *EngagementService) checkSubspace(ctx context.Context, userID, subjectID, subspaceID string) error {
	if userID == "" || subjectID == "" || subspaceID == "" {
		return fmt.Errorf("%w: user, subject and subspace are required", domain.ErrInvalidInput)
	}
	subspace, err := s.subspaces.GetByID(ctx, subspaceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("subspace %s: %w", subspaceID, domain.ErrNotFound)
		}
		return storeErr("get subspace", err)
	}
	if subspace.UserID != userID {
		return domain.ErrUnauthorized
	}
	if subspace.SubjectID != subjectID {
		return fmt.Errorf("%w: subspace does not belong to subject %s", domain.ErrInvalidInput, subjectID)
	}
	return nil
}

// getStreak loads the stored state. An empty Timezone is left empty so that
// users who never chose a zone follow the configured default.
func (s *EngagementService) getStreak(ctx context.Context, userID string) (*domain.StreakState, error) {
	state, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, storeErr("get streak", err)
	}
	return state, nil
}

// zoneOf is the zone used to resolve the user's local dates.
func (s *EngagementService) zoneOf(state *domain.StreakState) string {
	if state.Timezone == "" {
		return s.defaultTimezone
	}
	return state.Timezone
}

func (s *EngagementService) recordStreak(ctx context.Context, userID string, at time.Time) error {
	state, err := s.getStreak(ctx, userID)
	if err != nil {
		return err
	}
	today, err := s.clock.LocalDate(at, s.zoneOf(state))
	if err != nil {
		return err
	}

	next := NextStreak(*state, today)
	if next.LastActivityDate == state.LastActivityDate {
		return nil
	}

	applied, err := s.streaks.Put(ctx, &next)
	if err != nil {
		return storeErr("put streak", err)
	}
	if !applied {
		slog.Info("streak write rejected as backward", "user_id", userID, "date", today.String())
	}
	return nil
}
