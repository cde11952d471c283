package comm

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// RegistrarMux publishes events through every Registrar, e.g. the
// MQTT registry and a direct listener at the same time.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// Add appends registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// SendEvent implements Registrar. All registrars are tried even if
// some of them fail.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(loop *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			loop.Add(adder)
		}
	}
}

// UnsupportedCommands answers commands no controller took with
// CommandErr. It runs last in the iteration.
type UnsupportedCommands struct{}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		glog.V(2).Infof("unsupported command %T", cmdMsg.Command.Msg())
		cmdMsg.Command.Done(msgs.NewCommandErr(fmt.Errorf("%w: %T", msgs.ErrUnsupportedCommand, cmdMsg.Command.Msg())))
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, c)
}
