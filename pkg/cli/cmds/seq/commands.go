// Package seq adds sequencer commands to the shell.
package seq

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/lockstep/pkg/cli/sh"
	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// Defaults of seq.watch.
const (
	DefaultWatchCount = 10
	WatchIdle         = 5 * time.Second
)

// FormatStatus renders a status for display.
func FormatStatus(st *msgs.SequencerStatus) string {
	var w bytes.Buffer
	dir := "forward"
	if !st.Forward {
		dir = "backward"
	}
	fmt.Fprintf(&w, "tick %d: cursor %d/%d %s, routine %d", st.Tick, st.Cursor, st.TableSize, dir, st.Routine)
	if st.TravelingDown {
		w.WriteString(" (down)")
	}
	fmt.Fprintf(&w, "\ntable %s, %d routines", st.Fingerprint, st.RoutineCount)
	if st.IntervalMs > 0 {
		fmt.Fprintf(&w, "\nclock every %s", time.Duration(st.IntervalMs)*time.Millisecond)
		if st.EpochMs != 0 {
			fmt.Fprintf(&w, " since %s", time.Unix(0, st.EpochMs*int64(time.Millisecond)).UTC().Format(time.RFC3339))
		}
	}
	return w.String()
}

// FormatTrace renders a trace as a table.
func FormatTrace(reply *msgs.SequencerTraceReply) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%-8s %-6s %-7s %s\n", "tick", "cursor", "routine", "down")
	for n, step := range reply.Steps {
		fmt.Fprintf(&w, "%-8d %-6d %-7d %v\n", reply.FromTick+uint64(n)+1, step.Cursor, step.Routine, step.TravelingDown)
	}
	return w.String()
}

// ParseSteps parses the optional count argument, 0 if absent.
func ParseSteps(args []string) (uint32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", args[0])
	}
	return uint32(n), nil
}

// WatchStatus calls fn with the next count SequencerStatus events.
// Other events are skipped. It fails if no status arrives within idle.
func WatchStatus(events <-chan fx.Message, count int, idle time.Duration, fn func(*msgs.SequencerStatus)) error {
	timer := time.NewTimer(idle)
	defer timer.Stop()
	for count > 0 {
		select {
		case msg := <-events:
			st, ok := msg.(*msgs.SequencerStatus)
			if !ok {
				continue
			}
			fn(st)
			count--
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idle)
		case <-timer.C:
			return fmt.Errorf("no status in %s, is status publishing disabled?", idle)
		}
	}
	return nil
}

var (
	// StatusCmd exposes SequencerStatusQuery command.
	StatusCmd = ishell.Cmd{
		Name:    "seq.status",
		Aliases: []string{"ss"},
		Help:    "show sequencer position",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			res, err := sh.Exec(c, &msgs.SequencerStatusQuery{})
			if err != nil {
				c.Err(err)
				return
			}
			if sh.ShellFrom(c).OutputJSON {
				if err = sh.PrintJSON(c, res); err != nil {
					c.Err(err)
				}
				return
			}
			reply, ok := res.(*msgs.SequencerStatusReply)
			if !ok || reply.Status == nil {
				c.Err(fmt.Errorf("unexpected reply %T", res))
				return
			}
			c.Println(FormatStatus(reply.Status))
		}),
	}

	// WatchCmd prints status events as the controller publishes them.
	WatchCmd = ishell.Cmd{
		Name:    "seq.watch",
		Aliases: []string{"sw"},
		Help:    "[COUNT] print published status",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			count, err := ParseSteps(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if count == 0 {
				count = DefaultWatchCount
			}
			s := sh.ShellFrom(c)
			defer s.Session.Unwatch()
			err = WatchStatus(s.Session.Watch(), int(count), WatchIdle, func(st *msgs.SequencerStatus) {
				if s.OutputJSON {
					sh.PrintJSON(c, st)
					return
				}
				c.Println(FormatStatus(st))
			})
			if err != nil {
				c.Err(err)
			}
		}),
	}

	// TraceCmd exposes SequencerTrace command.
	TraceCmd = ishell.Cmd{
		Name:    "seq.trace",
		Aliases: []string{"st"},
		Help:    "[STEPS] show upcoming routines",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			steps, err := ParseSteps(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			res, err := sh.Exec(c, &msgs.SequencerTrace{Steps: steps})
			if err != nil {
				c.Err(err)
				return
			}
			if sh.ShellFrom(c).OutputJSON {
				if err = sh.PrintJSON(c, res); err != nil {
					c.Err(err)
				}
				return
			}
			reply, ok := res.(*msgs.SequencerTraceReply)
			if !ok {
				c.Err(fmt.Errorf("unexpected reply %T", res))
				return
			}
			c.Print(FormatTrace(reply))
		}),
	}
)

func init() {
	sh.AddCmds(
		&StatusCmd,
		&TraceCmd,
		&WatchCmd,
	)
}
