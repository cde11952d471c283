package link

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// ErrNoReply fails a command when the peer replied to a later one, or
// when more than MaxPending commands are waiting.
var ErrNoReply = errors.New("no reply")

// MaxPending is the number of commands waiting for replies beyond
// which the oldest ones are failed.
const MaxPending = 16

// CommandError wraps error codes from reply.
type CommandError struct {
	Code byte
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command error %d", e.Code)
}

// Result is the result of a command.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// Command represents a sent command waiting for reply.
type Command struct {
	requestSeq PacketSeq
	resultCh   chan Result
}

// RequestSeq returns the request packet seq.
func (c *Command) RequestSeq() PacketSeq {
	return c.requestSeq
}

// ResultChan returns the chan to retrieve result.
func (c *Command) ResultChan() <-chan Result {
	return c.resultCh
}

// Client matches replies to commands sent over a Conn.
// Replies come in order, so a reply fails all earlier pending
// commands with ErrNoReply.
type Client struct {
	conn    *Conn
	eventCh chan *Packet
	stateCh chan SyncState

	pending list.List
	lock    sync.Mutex
}

// NewClient creates client and wraps the conn.
func NewClient(conn *Conn) *Client {
	c := &Client{
		conn:    conn,
		eventCh: make(chan *Packet, 16),
		stateCh: make(chan SyncState, 1),
	}
	c.conn.Handler = c
	c.conn.Notifier = StateChangedFunc(func(ctx context.Context, state SyncState) {
		select {
		case c.stateCh <- state:
		case <-ctx.Done():
		}
	})
	return c
}

// Conn gets wrapped Conn.
func (c *Client) Conn() *Conn {
	return c.conn
}

// StateChan retrieves the state reporting chan. It must be drained
// while the Client runs.
func (c *Client) StateChan() <-chan SyncState {
	return c.stateCh
}

// EventChan retrieves the event reporting chan. Events are dropped
// when it's full.
func (c *Client) EventChan() <-chan *Packet {
	return c.eventCh
}

// Pending is the number of commands waiting for replies.
func (c *Client) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.pending.Len()
}

// Do sends a command and returns a Command for result.
func (c *Client) Do(pkt *Packet) *Command {
	cmd := &Command{resultCh: make(chan Result, 1)}
	c.lock.Lock()
	defer c.lock.Unlock()
	err := c.conn.Send(pkt)
	cmd.requestSeq = pkt.Seq
	if err != nil {
		cmd.resultCh <- Result{Err: err}
		return cmd
	}
	c.pending.PushBack(cmd)
	for c.pending.Len() > MaxPending {
		c.pending.Remove(c.pending.Front()).(*Command).resultCh <- Result{Err: ErrNoReply}
	}
	return cmd
}

// HandlePacket implements PacketHandler.
func (c *Client) HandlePacket(ctx context.Context, pkt *Packet) {
	if pkt.IsEvent() {
		select {
		case c.eventCh <- pkt:
		default:
			glog.Warningf("link event dropped: %s", pkt)
		}
		return
	}
	if len(pkt.Data) == 0 || !PacketSeq(pkt.Data[0]).IsValid() {
		glog.V(2).Infof("link invalid reply: %s", pkt)
		return
	}
	seq := PacketSeq(pkt.Data[0])

	var skipped []*Command
	var cmd *Command
	c.lock.Lock()
	for elem := c.pending.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(*Command).requestSeq == seq {
			for front := c.pending.Front(); front != elem; front = c.pending.Front() {
				skipped = append(skipped, c.pending.Remove(front).(*Command))
			}
			cmd = c.pending.Remove(elem).(*Command)
			break
		}
	}
	c.lock.Unlock()
	if cmd == nil {
		return
	}
	for _, s := range skipped {
		s.resultCh <- Result{Err: ErrNoReply}
	}
	if pkt.Code&1 != 0 {
		cmd.resultCh <- Result{Err: &CommandError{Code: pkt.Code & 0x7e}}
	} else {
		cmd.resultCh <- Result{Code: pkt.Code & 0x7e, Data: pkt.Data[1:]}
	}
}

// Run wraps Conn.Run to implement Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.conn.Run(ctx)
}
