package service

import (
	"cloud.google.com/go/civil"

	"github.com/msomdec/engagement/internal/domain"
)

// NextStreak returns the streak after a qualifying activity on today, a date
// already resolved in the user's timezone. It never mutates current.
func NextStreak(current domain.StreakState, today civil.Date) domain.StreakState {
	next := current
	if current.LastActivityDate != nil {
		last := *current.LastActivityDate
		switch {
		case today == last:
			return current
		case today == last.AddDays(1):
			next.StreakCount = current.StreakCount + 1
		case !today.After(last):
			// Clock moved backward.
			return current
		default:
			next.StreakCount = 1
		}
	} else {
		next.StreakCount = 1
	}

	d := today
	next.LastActivityDate = &d
	return next
}

// CurrentStreak is the streak as it should be displayed on today: the stored
// count while the streak is still alive (activity today or yesterday) and
// zero once a day has been missed.
func CurrentStreak(state domain.StreakState, today civil.Date) int {
	if state.LastActivityDate == nil {
		return 0
	}
	last := *state.LastActivityDate
	if today.After(last.AddDays(1)) {
		return 0
	}
	return state.StreakCount
}
