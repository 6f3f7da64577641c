package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock supplies the current instant and resolves local calendar dates.
type Clock interface {
	Now() time.Time
	LocalDate(t time.Time, timezone string) (civil.Date, error)
}
