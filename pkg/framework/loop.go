package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the tick interval when none is specified.
const DefaultInterval = 100 * time.Millisecond

// Clock maps wall time to tick numbers.
// Loops sharing Epoch and Interval on synchronized clocks agree on
// the tick number without talking to each other.
type Clock struct {
	Epoch    time.Time
	Interval time.Duration
}

// TickAt returns the tick containing t. Times before Epoch are tick 0.
func (c Clock) TickAt(t time.Time) uint64 {
	if !t.After(c.Epoch) {
		return 0
	}
	return uint64(t.Sub(c.Epoch) / c.Interval)
}

// Next returns the start of the first tick after t.
func (c Clock) Next(t time.Time) time.Time {
	if t.Before(c.Epoch) {
		return c.Epoch
	}
	return c.Epoch.Add(time.Duration(c.TickAt(t)+1) * c.Interval)
}

// LoopAdder adds itself, usually Controllers and Runnables, to a Loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// Loop runs Controllers at tick boundaries Epoch + n*Interval, and
// whenever a Runnable calls TriggerNext.
type Loop struct {
	Interval time.Duration
	// Epoch is the start of tick 0. Zero means when Run is called.
	Epoch time.Time

	controllers [PriorityLevels][]Controller
	runnables   []Runnable

	lock     sync.Mutex
	posted   []Message
	wakeUpCh chan struct{}
	lastTick uint64
}

var loopCtxKey = &Loop{}

// LoopCtlFrom gets LoopControl from the context passed to Runnables
// of a Loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	return ctx.Value(loopCtxKey).(LoopControl)
}

// CtlCtxFrom gets the ControlContext from ControlContext.Context().
func CtlCtxFrom(ctx context.Context) ControlContext {
	return ctx.Value(loopCtxKey).(ControlContext)
}

// NewLoop creates a Loop with DefaultInterval.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// WithClock sets Interval and Epoch.
func (l *Loop) WithClock(interval time.Duration, epoch time.Time) *Loop {
	l.Interval, l.Epoch = interval, epoch
	return l
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController adds ctls at priorityLevel. A Controller which is
// also a Runnable is started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if r, ok := ctl.(Runnable); ok {
			l.runnables = append(l.runnables, r)
		}
	}
	return l
}

// AddRunnable adds Runnables started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runnables = append(l.runnables, runnables...)
	return l
}

// Clock returns the clock the loop schedules iterations with.
// An unset Epoch is resolved to start.
func (l *Loop) Clock(start time.Time) Clock {
	c := Clock{Epoch: l.Epoch, Interval: l.Interval}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Epoch.IsZero() {
		c.Epoch = start
	}
	return c
}

// Run implements Runnable. Runnables are stopped and waited for
// before it returns.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	clock := l.Clock(time.Now())
	l.lastTick = clock.TickAt(time.Now())
	glog.V(1).Infof("loop epoch %s interval %s tick %d",
		clock.Epoch.Format(time.RFC3339Nano), clock.Interval, l.lastTick)

	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, LoopControl(l)))
	runner.Go(l.runnables...)
	defer runner.Wait()

	timer := time.NewTimer(time.Until(clock.Next(time.Now())))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			if tick := clock.TickAt(now); tick > l.lastTick {
				l.lastTick = tick
			}
			l.iterate(ctx, now, true)
			timer.Reset(time.Until(clock.Next(time.Now())))
		case <-l.wakeUpCh:
			l.iterate(ctx, time.Now(), false)
		}
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.posted = append(l.posted, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) iterate(ctx context.Context, now time.Time, scheduled bool) {
	iter := &iteration{
		Loop:      l,
		time:      now,
		tick:      l.lastTick,
		scheduled: scheduled,
	}
	l.lock.Lock()
	iter.messages, l.posted = l.posted, nil
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey, iter)
	for lv, ctls := range l.controllers {
		iter.priorityLevel = lv
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("tick %d level %d: %v", iter.tick, lv, err)
			}
		}
	}
}

// iteration implements ControlContext and MessageStore.
type iteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	tick          uint64
	scheduled     bool
	priorityLevel int
	messages      []Message
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) Tick() uint64             { return t.tick }
func (t *iteration) Scheduled() bool          { return t.scheduled }
func (t *iteration) PriorityLevel() int       { return t.priorityLevel }
func (t *iteration) Messages() MessageStore   { return t }

func (t *iteration) AddMessages(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}

// ProcessMessages keeps messages not taken in their order. Messages
// added during processing are queued after them.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	msgs := t.messages
	t.messages = nil
	var remains []Message
	for n, msg := range msgs {
		mctx := &messageContext{iter: t, msg: msg}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains = append(remains, msg)
		}
		if mctx.stop {
			remains = append(remains, msgs[n+1:]...)
			break
		}
	}
	t.messages = append(remains, t.messages...)
}

type messageContext struct {
	iter  *iteration
	msg   Message
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message     { return c.msg }
func (c *messageContext) MessageTaken()               { c.taken = true }
func (c *messageContext) StopProcessing()             { c.stop = true }
func (c *messageContext) AddMessages(msgs ...Message) { c.iter.AddMessages(msgs...) }
