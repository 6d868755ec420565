// Package apperr defines the error taxonomy shared across the service core.
// Store-level failures are translated into these sentinels at the repository
// boundary so callers never branch on driver errors.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthenticated  = errors.New("invalid or expired credential")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrConflict         = errors.New("conflict")
	ErrInvalidInput     = errors.New("invalid input")
	ErrExternalService  = errors.New("external service unavailable")
)

// FromStore maps a GORM error onto the taxonomy. Requires the DB to be opened
// with TranslateError so duplicate-key violations arrive as ErrDuplicatedKey.
func FromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
}
