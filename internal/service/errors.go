package service

import (
	"fmt"

	"github.com/msomdec/engagement/internal/domain"
)

// storeErr passes domain errors through and reports anything else from the
// persistence layer as ErrStoreUnavailable, keeping the cause in the chain.
func storeErr(op string, err error) error {
	if domain.IsDomainError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
