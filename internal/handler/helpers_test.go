package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/engagement/internal/clock"
	"github.com/msomdec/engagement/internal/handler"
	"github.com/msomdec/engagement/internal/repository/sqlite"
	"github.com/msomdec/engagement/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

// t0 is 10:00:00 UTC on 2024-03-10.
var t0 = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	return service.NewAuthService(testJWTSecret, time.Hour)
}

type testServer struct {
	*httptest.Server
	auth  *service.AuthService
	clock *clock.Manual
}

// newTestServer wires the full route table over a temp-dir database. A nil
// limiter disables rate limiting.
func newTestServer(t *testing.T, limiter *service.TokenBucket) *testServer {
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

	clk := clock.NewManual(t0)
	auth := newTestAuthService(t)
	engage := service.NewEngagementService(db.Sessions(), db.Subspaces(), db.Streaks(), clk, service.EngagementConfig{
		StaleAfter:      3 * time.Hour,
		DefaultTimezone: "UTC",
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, db, auth, engage, limiter)
	srv := httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, auth: auth, clock: clk}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.auth.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

// do sends an authenticated request as userID and decodes a JSON response
// into out when out is non-nil.
func (s *testServer) do(t *testing.T, userID, method, path string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) createSubspace(t *testing.T, userID, subjectID, name string) handler.SubspaceDTO {
	t.Helper()
	var sp handler.SubspaceDTO
	status := s.do(t, userID, http.MethodPost, "/api/subspaces", map[string]string{
		"subjectId": subjectID,
		"name":      name,
	}, &sp)
	if status != http.StatusCreated {
		t.Fatalf("create subspace: expected 201, got %d", status)
	}
	return sp
}
