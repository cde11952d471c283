package sequencer

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Size is the length of the default order table.
const Size = 28

// DefaultOrder is the order every controller walks through unless
// configured otherwise. The magnitude selects the routine (1-based),
// the sign tags the occurrence as traveling down.
var DefaultOrder = [Size]int8{
	-1, -2, 3, 4, -5, 6, 7,
	2, -7, -4, 1, -3, -6, 5,
	-1, 4, -2, -5, 7, 3, 6,
	5, -3, 1, -6, 2, -4, -7,
}

// Entry is a decoded table slot.
type Entry struct {
	// Routine is the zero-based routine identifier.
	Routine int
	// Down is set for occurrences traveling down.
	Down bool
}

// Table is an immutable order table.
type Table struct {
	raw      []int8
	entries  []Entry
	routines int
	digest   string
}

// NewTable validates the order and decodes it into a Table.
// size is the expected length of order and must be at least 2.
func NewTable(size int, order []int8) (*Table, error) {
	if size < 2 {
		return nil, ErrTableTooShort
	}
	if len(order) != size {
		return nil, &SizeMismatchError{Want: size, Got: len(order)}
	}
	t := &Table{
		raw:     make([]int8, size),
		entries: make([]Entry, size),
	}
	copy(t.raw, order)
	for n, val := range t.raw {
		if val == 0 {
			return nil, &ZeroEntryError{Index: n}
		}
		mag := int(val)
		if mag < 0 {
			mag = -mag
		}
		t.entries[n] = Entry{Routine: mag - 1, Down: val < 0}
		if mag > t.routines {
			t.routines = mag
		}
	}
	sum := sha3.Sum256(rawBytes(t.raw))
	t.digest = hex.EncodeToString(sum[:8])
	return t, nil
}

// DefaultTable builds the table from DefaultOrder.
func DefaultTable() *Table {
	t, err := NewTable(Size, DefaultOrder[:])
	if err != nil {
		panic(err)
	}
	return t
}

// Size is the number of entries.
func (t *Table) Size() int {
	return len(t.entries)
}

// RoutineCount is the largest magnitude in the table.
func (t *Table) RoutineCount() int {
	return t.routines
}

// At returns the decoded entry at index i.
func (t *Table) At(i int) Entry {
	return t.entries[i]
}

// Raw returns a copy of the signed order.
func (t *Table) Raw() []int8 {
	raw := make([]int8, len(t.raw))
	copy(raw, t.raw)
	return raw
}

// Fingerprint identifies the order. Controllers can only stay in
// lockstep when their fingerprints match.
func (t *Table) Fingerprint() string {
	return t.digest
}

// Period is the number of advances after which the traversal repeats.
func (t *Table) Period() int {
	return 2 * (len(t.entries) - 1)
}

func rawBytes(order []int8) []byte {
	b := make([]byte, len(order))
	for n, val := range order {
		b[n] = byte(val)
	}
	return b
}
