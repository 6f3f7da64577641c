package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/engagement/internal/clock"
	"github.com/msomdec/engagement/internal/domain"
	"github.com/msomdec/engagement/internal/repository/sqlite"
	"github.com/msomdec/engagement/internal/service"
)

// t0 is 10:00:00 UTC on 2024-03-10.
var t0 = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type testEnv struct {
	db     *sqlite.DB
	clock  *clock.Manual
	engage *service.EngagementService
}

func newTestEnv(t *testing.T, staleAfter time.Duration) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clk := clock.NewManual(t0)
	engage := service.NewEngagementService(db.Sessions(), db.Subspaces(), db.Streaks(), clk, service.EngagementConfig{
		StaleAfter:      staleAfter,
		DefaultTimezone: "UTC",
	})
	return &testEnv{db: db, clock: clk, engage: engage}
}

// subspace registers a subspace for userID under subject "math".
func (e *testEnv) subspace(t *testing.T, userID, name string) *domain.Subspace {
	t.Helper()
	sp, err := e.engage.CreateSubspace(context.Background(), userID, "math", name)
	if err != nil {
		t.Fatalf("CreateSubspace: %v", err)
	}
	return sp
}

var errBoom = errors.New("connection reset")

// brokenSessions fails every call, like an unreachable database.
type brokenSessions struct{}

func (brokenSessions) InsertIfNoActive(context.Context, *domain.Session) (*domain.Session, bool, error) {
	return nil, false, errBoom
}

func (brokenSessions) UpdateEnd(context.Context, string, int64, time.Time, float64) (*domain.Session, error) {
	return nil, errBoom
}

func (brokenSessions) GetByID(context.Context, string) (*domain.Session, error) {
	return nil, errBoom
}

func (brokenSessions) QueryByKey(context.Context, domain.SessionKey) ([]domain.Session, error) {
	return nil, errBoom
}

func (brokenSessions) QueryActive(context.Context, domain.SessionKey) (*domain.Session, error) {
	return nil, errBoom
}

func (brokenSessions) LatestByUser(context.Context, string) (*domain.Session, error) {
	return nil, errBoom
}

// brokenStreaks fails writes only.
type brokenStreaks struct {
	domain.StreakStore
}

func (brokenStreaks) Put(context.Context, *domain.StreakState) (bool, error) {
	return false, errBoom
}
