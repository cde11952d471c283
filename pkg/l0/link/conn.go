package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// ErrNotReady indicates the link is not synchronized.
var ErrNotReady = errors.New("link not ready")

// DefaultSyncTimeout is how long a sync or a partial packet may take.
const DefaultSyncTimeout = 100 * time.Millisecond

// PacketHandler is called when a packet is received.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// StateNotifier is called when the sync state changes.
type StateNotifier interface {
	StateChanged(context.Context, SyncState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, SyncState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state SyncState) {
	f(ctx, state)
}

// Conn exchanges packets with the peer over a byte stream.
type Conn struct {
	ReadWriter io.ReadWriter
	Handler    PacketHandler
	Notifier   StateNotifier
	Timeout    time.Duration

	seq   PacketSeq
	state SyncState
	lock  sync.RWMutex

	syncTimer <-chan time.Time
	parser    Parser
}

// NewConn creates a Conn.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		ReadWriter: rw,
		Timeout:    DefaultSyncTimeout,
		seq:        NewPacketSeq(),
	}
}

// State gets the state.
func (c *Conn) State() SyncState {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state
}

// Stats returns the counters of received traffic.
func (c *Conn) Stats() ParserStats {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.parser.Stats()
}

// Send sends a packet, assigning its seq.
func (c *Conn) Send(pkt *Packet) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.state.IsReady() {
		return ErrNotReady
	}
	pkt.Seq = c.seq
	if _, err := pkt.WriteTo(c.ReadWriter); err != nil {
		return err
	}
	c.seq = c.seq.Next()
	return nil
}

// Run processes received bytes until ctx is done or reading fails.
func (c *Conn) Run(ctx context.Context) error {
	if err := c.apply(ctx, c.withParser(c.parser.Reset)); err != nil {
		return err
	}

	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(subCtx, byteCh, errCh)
	for {
		var pr ParseResult
		select {
		case b := <-byteCh:
			pr = c.withParser(func() ParseResult { return c.parser.Parse(b) })
		case <-c.syncTimer:
			pr = c.withParser(c.parser.Timeout)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := c.apply(ctx, pr); err != nil {
			return err
		}
	}
}

func (c *Conn) readLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		if _, err := c.ReadWriter.Read(buf); err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) withParser(fn func() ParseResult) ParseResult {
	c.lock.Lock()
	defer c.lock.Unlock()
	return fn()
}

func (c *Conn) apply(ctx context.Context, pr ParseResult) (err error) {
	var notifier StateNotifier
	c.lock.Lock()
	if c.state != pr.State {
		glog.V(2).Infof("link %s -> %s", c.state, pr.State)
		c.state = pr.State
		notifier = c.Notifier
	}
	if pr.Sync != 0 {
		_, err = c.ReadWriter.Write([]byte{pr.Sync, byte(c.seq)})
	}
	c.lock.Unlock()
	if err != nil {
		return
	}

	switch pr.WhatAboutTimer() {
	case TimerRestart:
		c.syncTimer = time.After(c.Timeout)
	case TimerStop:
		c.syncTimer = nil
	}

	if notifier != nil {
		notifier.StateChanged(ctx, pr.State)
	}
	if pr.Packet != nil {
		if h := c.Handler; h != nil {
			h.HandlePacket(ctx, pr.Packet)
		}
	}
	return
}
