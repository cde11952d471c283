package routine

import (
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
	"github.com/robotalks/lockstep/pkg/sequencer"
)

// MaxTraceSteps limits a SequencerTrace command.
const MaxTraceSteps = 1000

// Dispatcher owns a Sequencer and moves it with the tick of the loop.
// After tick n the sequencer has advanced exactly n times, regardless
// of skipped iterations, so controllers sharing the clock agree.
type Dispatcher struct {
	Registrar l1.Registrar
	Routine   Routine
	Clock     fx.Clock
	// StatusEvery publishes SequencerStatus on ticks divisible by it.
	// 0 disables publishing.
	StatusEvery uint64

	seq        *sequencer.Sequencer
	tick       uint64
	dispatched bool
}

// NewDispatcher creates a Dispatcher at tick 0.
func NewDispatcher(seq *sequencer.Sequencer, r Routine) *Dispatcher {
	return &Dispatcher{Routine: r, seq: seq}
}

// AddToLoop implements LoopAdder.
func (d *Dispatcher) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, d)
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(d.publishStatus))
}

// Tick is the last dispatched tick.
func (d *Dispatcher) Tick() uint64 {
	return d.tick
}

// Sequencer returns the live sequencer. Only use it from the loop.
func (d *Dispatcher) Sequencer() *sequencer.Sequencer {
	return d.seq
}

// Control implements Controller.
func (d *Dispatcher) Control(cc fx.ControlContext) error {
	d.dispatched = false
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		switch m := cmdMsg.Command.Msg().(type) {
		case *msgs.SequencerStatusQuery:
			mctx.MessageTaken()
			cmdMsg.Command.Done(&msgs.SequencerStatusReply{Status: d.Status()})
		case *msgs.SequencerTrace:
			mctx.MessageTaken()
			cmdMsg.Command.Done(d.trace(m))
		}
	}))

	tick := cc.Tick()
	if !cc.Scheduled() || tick <= d.tick {
		return nil
	}
	d.seq.AdvanceBy(tick - d.tick)
	if delta := tick - d.tick; delta > 1 && d.tick > 0 {
		glog.Warningf("skipped %d ticks before tick %d", delta-1, tick)
	}
	d.tick = tick
	d.dispatched = true
	if d.Routine == nil {
		return nil
	}
	step := StepOf(tick, d.seq)
	if err := d.Routine.Execute(cc, step); err != nil {
		return fmt.Errorf("routine %d at tick %d: %v", step.Routine, tick, err)
	}
	return nil
}

// Status reports the current position.
func (d *Dispatcher) Status() *msgs.SequencerStatus {
	table := d.seq.Table()
	entry := d.seq.Entry()
	st := &msgs.SequencerStatus{
		Tick:          d.tick,
		Cursor:        uint32(d.seq.Cursor()),
		Forward:       d.seq.Direction() == sequencer.Forward,
		Routine:       uint32(entry.Routine),
		TravelingDown: entry.Down,
		TableSize:     uint32(table.Size()),
		RoutineCount:  uint32(table.RoutineCount()),
		Fingerprint:   table.Fingerprint(),
		IntervalMs:    uint32(d.Clock.Interval.Milliseconds()),
	}
	if !d.Clock.Epoch.IsZero() {
		st.EpochMs = d.Clock.Epoch.UnixNano() / 1e6
	}
	return st
}

func (d *Dispatcher) trace(m *msgs.SequencerTrace) fx.Message {
	if m.Steps > MaxTraceSteps {
		return msgs.NewCommandErrFromMsg(fmt.Sprintf("at most %d steps can be traced", MaxTraceSteps))
	}
	steps := int(m.Steps)
	if steps == 0 {
		steps = d.seq.Period()
	}
	seq := d.seq.Clone()
	reply := &msgs.SequencerTraceReply{
		FromTick: d.tick,
		Steps:    make([]*msgs.TraceStep, 0, steps),
	}
	for n := 0; n < steps; n++ {
		seq.Advance()
		reply.Steps = append(reply.Steps, &msgs.TraceStep{
			Cursor:        uint32(seq.Cursor()),
			Routine:       uint32(seq.Routine()),
			TravelingDown: seq.TravelingDown(),
		})
	}
	return reply
}

func (d *Dispatcher) publishStatus(cc fx.ControlContext) error {
	if !d.dispatched || d.Registrar == nil || d.StatusEvery == 0 || d.tick%d.StatusEvery != 0 {
		return nil
	}
	return d.Registrar.SendEvent(cc.Context(), d.Status())
}
