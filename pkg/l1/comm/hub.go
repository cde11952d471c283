package comm

import (
	"context"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
)

// Hub is a Registrar serving direct sessions, one per connected peer.
// Events are broadcast to all sessions, command results go back to
// the session which issued the command.
type Hub struct {
	lock     sync.RWMutex
	sessions map[*Registrar]struct{}
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[*Registrar]struct{})}
}

// Serve runs a session until the peer disconnects or ctx is done.
// ctx must come from a Runnable of the loop the Hub serves.
func (h *Hub) Serve(ctx context.Context, rw PacketReadWriteCloser) error {
	reg := &Registrar{}
	reg.Init(rw)
	h.lock.Lock()
	h.sessions[reg] = struct{}{}
	count := len(h.sessions)
	h.lock.Unlock()
	glog.V(1).Infof("session opened, %d active", count)

	err := fx.RunWithContextCloser(ctx, rw, func() error {
		return reg.Run(ctx)
	})

	h.lock.Lock()
	delete(h.sessions, reg)
	count = len(h.sessions)
	h.lock.Unlock()
	glog.V(1).Infof("session closed (%v), %d active", err, count)
	return err
}

// Sessions is the number of active sessions.
func (h *Hub) Sessions() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.sessions)
}

// SendEvent implements Registrar. A failing session is closed so it's
// removed by its Serve.
func (h *Hub) SendEvent(ctx context.Context, msg fx.Message) error {
	h.lock.RLock()
	regs := make([]*Registrar, 0, len(h.sessions))
	for reg := range h.sessions {
		regs = append(regs, reg)
	}
	h.lock.RUnlock()
	for _, reg := range regs {
		if err := reg.SendEvent(ctx, msg); err != nil {
			glog.Warningf("send event to session failed: %v", err)
			reg.pipe.Close()
		}
	}
	return nil
}
