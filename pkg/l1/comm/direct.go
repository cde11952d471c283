package comm

import (
	"context"
	"io"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
)

// Dialer opens a session to a controller.
type Dialer func(context.Context) (PacketReadWriteCloser, error)

// DirectConnector implements l1.Connector for an address serving
// exactly one controller, e.g. its TCP or websocket listener.
type DirectConnector struct {
	Address string
	Ref     l1.ControllerRef
	Dial    Dialer
}

// Discover implements Connector. It reports the controller at Address
// without probing it.
func (c *DirectConnector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	ref := c.Ref
	if !ref.IsValid() {
		ref = l1.ControllerRef{Type: "direct", ID: c.Address}
	}
	return []l1.ControllerInfo{{Ref: ref}}, nil
}

// Connect implements Connector. ref is ignored.
func (c *DirectConnector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	rw, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	conn := &DirectConn{closer: rw}
	conn.Init(rw)
	return conn, nil
}

// DirectConn is a ControllerConn owning its session.
type DirectConn struct {
	ControllerConn
	closer io.Closer
}

// AddToLoop implements LoopAdder. The session is closed when the
// loop stops.
func (c *DirectConn) AddToLoop(l *fx.Loop) {
	c.ControllerConn.AddToLoop(l)
	l.AddRunnable(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		c.closer.Close()
		return ctx.Err()
	}))
}
