package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVersionConflict is returned by optimistic updates whose expected
	// version no longer matches the stored row.
	ErrVersionConflict = errors.New("version conflict")
)

// IsDomainError reports whether err carries one of the sentinel errors above.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrVersionConflict)
}
