package domain

import (
	"context"

	"cloud.google.com/go/civil"
)

// StreakState is the per-user daily activity streak.
type StreakState struct {
	UserID      string
	StreakCount int
	// LastActivityDate is nil until the first qualifying activity.
	LastActivityDate *civil.Date
	Timezone         string
}

// StreakStore persists one StreakState per user.
type StreakStore interface {
	// Get returns the user's state. A user with no stored state gets a zero
	// StreakState with UserID set and an empty Timezone.
	Get(ctx context.Context, userID string) (*StreakState, error)

	// Put writes the state. Writes that would move LastActivityDate backward
	// are ignored; applied reports whether the row changed.
	Put(ctx context.Context, state *StreakState) (applied bool, err error)
}
