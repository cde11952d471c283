package sequencer

import (
	"errors"
	"fmt"
)

var (
	// ErrTableTooShort indicates a table with fewer than 2 entries.
	ErrTableTooShort = errors.New("order table needs at least 2 entries")
)

// SizeMismatchError indicates the order length differs from the table size.
type SizeMismatchError struct {
	Want int
	Got  int
}

// Error implements error.
func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("order table size mismatch: want %d entries, got %d", e.Want, e.Got)
}

// ZeroEntryError indicates a zero entry which maps to no routine.
type ZeroEntryError struct {
	Index int
}

// Error implements error.
func (e *ZeroEntryError) Error() string {
	return fmt.Sprintf("order table entry %d is zero", e.Index)
}
