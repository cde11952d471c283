// Package sequencer walks an order table back and forth, one entry per
// tick, so that controllers driven by the same tick count select the
// same routine without talking to each other.
package sequencer

// Direction is the direction the cursor moves on the next advance.
type Direction int8

// Directions
const (
	Forward  Direction = 1
	Backward Direction = -1
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// State is the position of a Sequencer.
type State struct {
	Cursor    int
	Direction Direction
}

// Sequencer selects the routine for each tick.
// It's not safe for concurrent use, each control loop owns its own.
type Sequencer struct {
	table  *Table
	cursor int
	dir    Direction
}

// New creates a Sequencer at the first entry moving forward.
func New(t *Table) *Sequencer {
	return &Sequencer{table: t, dir: Forward}
}

// NewDefault creates a Sequencer over DefaultOrder.
func NewDefault() *Sequencer {
	return New(DefaultTable())
}

// Advance moves to the next entry, reversing at both ends.
func (s *Sequencer) Advance() {
	s.cursor += int(s.dir)
	if s.cursor == s.table.Size()-1 && s.dir == Forward {
		s.dir = Backward
	} else if s.cursor == 0 && s.dir == Backward {
		s.dir = Forward
	}
}

// AdvanceBy is the same as calling Advance n times.
func (s *Sequencer) AdvanceBy(n uint64) {
	for n %= uint64(s.table.Period()); n > 0; n-- {
		s.Advance()
	}
}

// Routine is the zero-based routine identifier at the cursor.
func (s *Sequencer) Routine() int {
	return s.table.entries[s.cursor].Routine
}

// TravelingDown reports the sign tag of the entry at the cursor.
func (s *Sequencer) TravelingDown() bool {
	return s.table.entries[s.cursor].Down
}

// Entry returns the decoded entry at the cursor.
func (s *Sequencer) Entry() Entry {
	return s.table.entries[s.cursor]
}

// Cursor is the current index into the table.
func (s *Sequencer) Cursor() int {
	return s.cursor
}

// Direction is the direction of the next advance.
func (s *Sequencer) Direction() Direction {
	return s.dir
}

// State returns cursor and direction.
func (s *Sequencer) State() State {
	return State{Cursor: s.cursor, Direction: s.dir}
}

// Table returns the order table.
func (s *Sequencer) Table() *Table {
	return s.table
}

// Period is the number of advances in one full bounce.
func (s *Sequencer) Period() int {
	return s.table.Period()
}

// Clone copies the sequencer. The table is shared as it's immutable.
func (s *Sequencer) Clone() *Sequencer {
	c := *s
	return &c
}

// StateAt computes the state after n advances from the initial state
// for a table of the given size.
func StateAt(size int, n uint64) State {
	last := uint64(size - 1)
	k := n % (2 * last)
	if k < last {
		return State{Cursor: int(k), Direction: Forward}
	}
	return State{Cursor: int(2*last - k), Direction: Backward}
}
