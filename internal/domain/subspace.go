package domain

import (
	"context"
	"time"
)

// Subspace is a user-defined topic of study nested under a subject.
type Subspace struct {
	ID        string
	UserID    string
	SubjectID string
	Name      string
	CreatedAt time.Time
}

type SubspaceRepository interface {
	Create(ctx context.Context, subspace *Subspace) error
	GetByID(ctx context.Context, id string) (*Subspace, error)
	ListByUser(ctx context.Context, userID string) ([]Subspace, error)
	// LatestByUser returns the most recently created subspace, or nil.
	LatestByUser(ctx context.Context, userID string) (*Subspace, error)
}

// ContinueTarget is where a returning user should resume studying.
type ContinueTarget struct {
	SubspaceID string
	SubjectID  string
	// LastSessionStart is nil when the target comes from the subspace
	// registry rather than from session history.
	LastSessionStart *time.Time
}

// Summary is the time spent on a subspace so far.
type Summary struct {
	TotalMinutes      float64
	IsCurrentlyActive bool
	ActiveSessionID   string
}
