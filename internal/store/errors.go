package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Error kinds returned by the store. Callers match them with errors.Is; the
// wrapped message keeps the underlying driver or decoder text.
var (
	// ErrStorageUnavailable means the database location could not be opened
	// or created.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConstraint means a foreign key, primary key or CHECK constraint
	// rejected a write.
	ErrConstraint = errors.New("constraint violation")

	// ErrDecode means stored structured text could not be parsed. Ordinary
	// reads degrade instead of returning it; migration does not.
	ErrDecode = errors.New("decode failure")

	// ErrInvalid means the caller supplied an entity the store cannot key.
	ErrInvalid = errors.New("invalid input")
)

// classify tags sqlite constraint failures with ErrConstraint.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrConstraint) {
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}
