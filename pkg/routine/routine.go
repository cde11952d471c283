// Package routine dispatches the routine selected by the sequencer on
// every tick of the control loop.
package routine

import (
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/sequencer"
)

// Step is what the sequencer selected for a tick.
type Step struct {
	Tick      uint64
	Cursor    int
	Routine   int
	Down      bool
	Direction sequencer.Direction
}

// StepOf reads the current position of seq.
func StepOf(tick uint64, seq *sequencer.Sequencer) Step {
	entry := seq.Entry()
	return Step{
		Tick:      tick,
		Cursor:    seq.Cursor(),
		Routine:   entry.Routine,
		Down:      entry.Down,
		Direction: seq.Direction(),
	}
}

// String implements fmt.Stringer.
func (s Step) String() string {
	return fmt.Sprintf("tick=%d cursor=%d routine=%d down=%v next=%s",
		s.Tick, s.Cursor, s.Routine, s.Down, s.Direction)
}

// Routine is the work executed for a selected routine id.
type Routine interface {
	Execute(fx.ControlContext, Step) error
}

// Func is the func form of Routine.
type Func func(fx.ControlContext, Step) error

// Execute implements Routine.
func (f Func) Execute(cc fx.ControlContext, step Step) error {
	return f(cc, step)
}

// Set maps routine ids to Routines.
type Set struct {
	// Fallback executes ids without a registered Routine.
	Fallback Routine

	routines map[int]Routine
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{routines: make(map[int]Routine)}
}

// Handle registers r for routine id.
func (s *Set) Handle(id int, r Routine) *Set {
	if s.routines == nil {
		s.routines = make(map[int]Routine)
	}
	s.routines[id] = r
	return s
}

// Execute implements Routine.
func (s *Set) Execute(cc fx.ControlContext, step Step) error {
	if r := s.routines[step.Routine]; r != nil {
		return r.Execute(cc, step)
	}
	if s.Fallback != nil {
		return s.Fallback.Execute(cc, step)
	}
	return nil
}

// Chain executes all Routines in order. Errors are aggregated, a
// failing Routine doesn't stop the rest.
type Chain []Routine

// Execute implements Routine.
func (c Chain) Execute(cc fx.ControlContext, step Step) error {
	var errs fx.AggregatedError
	for _, r := range c {
		errs.Add(r.Execute(cc, step))
	}
	return errs.Aggregate()
}

// LogRoutine logs every step.
type LogRoutine struct{}

// Execute implements Routine.
func (LogRoutine) Execute(cc fx.ControlContext, step Step) error {
	glog.V(1).Infof("dispatch %s", step)
	return nil
}
