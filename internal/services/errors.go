package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced id does not resolve to a
// non-deleted record. Recomputation for such an id is skipped and the
// caller is told so; it is never swallowed.
var ErrNotFound = errors.New("record not found")

// wrapDBErr maps gorm errors onto the service error taxonomy. Write
// failures come back as-is for the caller to retry; the services never
// retry internally so derived timestamps cannot be stamped twice.
func wrapDBErr(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return err
}
