package stream

import (
	"context"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/comm"
)

// Listener accepts TCP sessions for a Hub.
type Listener struct {
	Address string
	Hub     *comm.Hub
}

// AddToLoop implements LoopAdder.
func (l *Listener) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(l)
}

// Run implements Runnable.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.Address)
	if err != nil {
		return err
	}
	glog.Infof("listening tcp %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.V(1).Infof("tcp session from %s", conn.RemoteAddr())
			go l.Hub.Serve(ctx, New(conn))
		}
	})
}

// Dialer returns a comm.Dialer connecting to address.
func Dialer(address string) comm.Dialer {
	return func(ctx context.Context) (comm.PacketReadWriteCloser, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, err
		}
		return New(conn), nil
	}
}
