// Package clock provides domain.Clock implementations.
package clock

import (
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/msomdec/engagement/internal/domain"
)

// LoadLocation resolves an IANA zone name. An empty name means UTC.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidInput, timezone)
	}
	return loc, nil
}

// LocalDate returns the calendar date of t in the given zone.
func LocalDate(t time.Time, timezone string) (civil.Date, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t.In(loc)), nil
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

func (System) LocalDate(t time.Time, timezone string) (civil.Date, error) {
	return LocalDate(t, timezone)
}

// Manual is a clock that only moves when told to. It is safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock set to now.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward (or backward, for negative d).
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

func (m *Manual) LocalDate(t time.Time, timezone string) (civil.Date, error) {
	return LocalDate(t, timezone)
}

var (
	_ domain.Clock = System{}
	_ domain.Clock = (*Manual)(nil)
)
