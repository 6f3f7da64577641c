package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/msomdec/engagement/internal/clock"
	"github.com/msomdec/engagement/internal/domain"
	"github.com/msomdec/engagement/internal/service"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDurationAggregator_TotalMinutes(t *testing.T) {
	db := newTestDB(t)
	tracker := service.NewSessionTracker(db.Sessions(), 0)
	agg := service.NewDurationAggregator(db.Sessions(), db.Subspaces())
	ctx := context.Background()

	total, err := agg.TotalMinutes(ctx, "u1", "sp-1", t0)
	if err != nil {
		t.Fatalf("TotalMinutes (empty): %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 for no sessions, got %v", total)
	}

	// Two ended sessions: 30 and 15 minutes.
	for _, span := range []struct{ start, length time.Duration }{{0, 30 * time.Minute}, {time.Hour, 15 * time.Minute}} {
		s, err := tracker.Start(ctx, "u1", "math", "sp-1", t0.Add(span.start))
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if _, err := tracker.End(ctx, s.ID, t0.Add(span.start+span.length), "u1"); err != nil {
			t.Fatalf("End: %v", err)
		}
	}

	// One active session started at 12:00.
	if _, err := tracker.Start(ctx, "u1", "math", "sp-1", t0.Add(2*time.Hour)); err != nil {
		t.Fatalf("Start active: %v", err)
	}

	summary, err := agg.Summary(ctx, "u1", "sp-1", t0.Add(2*time.Hour+10*time.Minute))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !almostEqual(summary.TotalMinutes, 55) {
		t.Fatalf("expected 55 minutes (30+15+10 live), got %v", summary.TotalMinutes)
	}
	if !summary.IsCurrentlyActive || summary.ActiveSessionID == "" {
		t.Fatalf("expected an active session in the summary, got %+v", summary)
	}

	// Other users and other subspaces do not contribute.
	if _, err := tracker.Start(ctx, "u2", "math", "sp-1", t0); err != nil {
		t.Fatalf("Start u2: %v", err)
	}
	if _, err := tracker.Start(ctx, "u1", "math", "sp-2", t0); err != nil {
		t.Fatalf("Start sp-2: %v", err)
	}
	again, err := agg.TotalMinutes(ctx, "u1", "sp-1", t0.Add(2*time.Hour+10*time.Minute))
	if err != nil {
		t.Fatalf("TotalMinutes: %v", err)
	}
	if !almostEqual(again, 55) {
		t.Fatalf("expected 55 minutes unaffected by other keys, got %v", again)
	}
}

func TestDurationAggregator_NoDoubleCounting(t *testing.T) {
	db := newTestDB(t)
	tracker := service.NewSessionTracker(db.Sessions(), 0)
	agg := service.NewDurationAggregator(db.Sessions(), db.Subspaces())
	ctx := context.Background()

	start := t0
	for _, elapsed := range []time.Duration{5 * time.Second, 17 * time.Minute} {
		s, err := tracker.Start(ctx, "u1", "math", "sp-1", start)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		now := start.Add(elapsed)

		live, err := agg.TotalMinutes(ctx, "u1", "sp-1", now)
		if err != nil {
			t.Fatalf("TotalMinutes live: %v", err)
		}
		if _, err := tracker.End(ctx, s.ID, now, "u1"); err != nil {
			t.Fatalf("End: %v", err)
		}
		after, err := agg.TotalMinutes(ctx, "u1", "sp-1", now)
		if err != nil {
			t.Fatalf("TotalMinutes after: %v", err)
		}

		if !almostEqual(live, after) {
			t.Fatalf("elapsed %v: total changed from %v to %v with no time passing", elapsed, live, after)
		}
		start = start.Add(time.Hour)
	}
}

func TestDurationAggregator_MostRecentSubspace(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewManual(t0)
	engage := service.NewEngagementService(db.Sessions(), db.Subspaces(), db.Streaks(), clk, service.EngagementConfig{})
	agg := engage.Aggregator()
	ctx := context.Background()

	// (c) no subspaces at all.
	target, err := agg.MostRecentSubspace(ctx, "u1")
	if err != nil {
		t.Fatalf("MostRecentSubspace: %v", err)
	}
	if target != nil {
		t.Fatalf("expected nil target, got %+v", target)
	}

	// (b) subspaces but no sessions: the newest subspace.
	older, err := engage.CreateSubspace(ctx, "u1", "math", "Limits")
	if err != nil {
		t.Fatalf("CreateSubspace: %v", err)
	}
	clk.Advance(time.Minute)
	newer, err := engage.CreateSubspace(ctx, "u1", "physics", "Optics")
	if err != nil {
		t.Fatalf("CreateSubspace: %v", err)
	}

	target, err = agg.MostRecentSubspace(ctx, "u1")
	if err != nil {
		t.Fatalf("MostRecentSubspace: %v", err)
	}
	if target == nil || target.SubspaceID != newer.ID || target.SubjectID != "physics" || target.LastSessionStart != nil {
		t.Fatalf("expected newest subspace %s without session start, got %+v", newer.ID, target)
	}

	// (a) the subspace with the latest session start wins.
	clk.Advance(time.Minute)
	s, err := engage.EnterSubspace(ctx, "u1", "math", older.ID)
	if err != nil {
		t.Fatalf("EnterSubspace: %v", err)
	}

	target, err = agg.MostRecentSubspace(ctx, "u1")
	if err != nil {
		t.Fatalf("MostRecentSubspace: %v", err)
	}
	if target == nil || target.SubspaceID != older.ID || target.SubjectID != "math" {
		t.Fatalf("expected %s from session history, got %+v", older.ID, target)
	}
	if target.LastSessionStart == nil || !target.LastSessionStart.Equal(s.StartTime) {
		t.Fatalf("expected last session start %v, got %v", s.StartTime, target.LastSessionStart)
	}
}

func TestDurationAggregator_StoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	agg := service.NewDurationAggregator(brokenSessions{}, db.Subspaces())
	ctx := context.Background()

	if _, err := agg.TotalMinutes(ctx, "u1", "sp-1", t0); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("TotalMinutes: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := agg.MostRecentSubspace(ctx, "u1"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("MostRecentSubspace: expected ErrStoreUnavailable, got %v", err)
	}
}
