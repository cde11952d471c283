// Package lockstep checks status reports of controllers which are
// expected to select the same routine on the same tick.
package lockstep

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/lockstep/pkg/l1/msgs"
	"github.com/robotalks/lockstep/pkg/sequencer"
)

// Kind classifies a Divergence.
type Kind int

// Kinds of divergence.
const (
	// KindState means cursor and direction don't match the tick.
	KindState Kind = iota
	// KindFingerprint means the controller runs another order table.
	KindFingerprint
	// KindRoutine means another controller selected a different
	// routine on the same tick.
	KindRoutine
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindFingerprint:
		return "fingerprint"
	case KindRoutine:
		return "routine"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Divergence is a mismatch found in a status report.
type Divergence struct {
	Kind       Kind
	Controller string
	// Peer is the controller compared with for KindRoutine and
	// KindFingerprint.
	Peer   string
	Tick   uint64
	Detail string
}

// String implements fmt.Stringer.
func (d Divergence) String() string {
	if d.Peer != "" {
		return fmt.Sprintf("%s diverged from %s at tick %d (%s): %s", d.Controller, d.Peer, d.Tick, d.Kind, d.Detail)
	}
	return fmt.Sprintf("%s diverged at tick %d (%s): %s", d.Controller, d.Tick, d.Kind, d.Detail)
}

// Observation is the latest status of a controller.
type Observation struct {
	Controller string
	Status     *msgs.SequencerStatus
	Diverged   bool

	// no state divergence, so its fingerprint counts as a vote
	consistent bool
}

// Monitor keeps the latest status of each controller.
type Monitor struct {
	lock   sync.Mutex
	latest map[string]*Observation
}

// NewMonitor creates a Monitor.
func NewMonitor() *Monitor {
	return &Monitor{latest: make(map[string]*Observation)}
}

// Observe checks st reported by controller name.
func (m *Monitor) Observe(name string, st *msgs.SequencerStatus) []Divergence {
	var divs []Divergence
	add := func(kind Kind, peer, format string, args ...interface{}) {
		divs = append(divs, Divergence{
			Kind:       kind,
			Controller: name,
			Peer:       peer,
			Tick:       st.Tick,
			Detail:     fmt.Sprintf(format, args...),
		})
	}

	if st.TableSize < 2 || st.Cursor >= st.TableSize {
		add(KindState, "", "cursor %d out of table size %d", st.Cursor, st.TableSize)
	} else {
		expected := sequencer.StateAt(int(st.TableSize), st.Tick)
		if int(st.Cursor) != expected.Cursor || st.Forward != (expected.Direction == sequencer.Forward) {
			add(KindState, "", "cursor %d %s, expected %d %s",
				st.Cursor, directionOf(st.Forward), expected.Cursor, expected.Direction)
		}
	}

	consistent := len(divs) == 0
	m.lock.Lock()
	defer m.lock.Unlock()
	if fp, owner := m.reference(name, st, consistent); fp != "" && st.Fingerprint != fp {
		add(KindFingerprint, owner, "order table %s, expected %s", st.Fingerprint, fp)
	}
	if len(divs) == 0 {
		for _, peer := range m.sortedNames() {
			obs := m.latest[peer]
			if peer == name || obs.Diverged || obs.Status.Tick != st.Tick {
				continue
			}
			if obs.Status.Routine != st.Routine || obs.Status.TravelingDown != st.TravelingDown {
				add(KindRoutine, peer, "routine %d down=%v, peer %d down=%v",
					st.Routine, st.TravelingDown, obs.Status.Routine, obs.Status.TravelingDown)
			}
			break
		}
	}
	m.latest[name] = &Observation{
		Controller: name,
		Status:     st,
		Diverged:   len(divs) > 0,
		consistent: consistent,
	}
	for _, d := range divs {
		glog.Warning(d.String())
	}
	return divs
}

// Forget removes a controller, e.g. when it's gone.
func (m *Monitor) Forget(name string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.latest, name)
}

// Snapshot lists the latest observations ordered by controller name.
func (m *Monitor) Snapshot() []Observation {
	m.lock.Lock()
	defer m.lock.Unlock()
	names := m.sortedNames()
	res := make([]Observation, 0, len(names))
	for _, name := range names {
		res = append(res, *m.latest[name])
	}
	return res
}

// reference picks the fingerprint held by most controllers without a state
// divergence, counting name itself when consistent. A tie goes to the
// fingerprint of the first controller by name. owner is the first other
// controller holding it.
func (m *Monitor) reference(name string, st *msgs.SequencerStatus, consistent bool) (fp, owner string) {
	names := m.sortedNames()
	if _, ok := m.latest[name]; !ok {
		names = append(names, name)
		sort.Strings(names)
	}
	votes := make(map[string]int)
	owners := make(map[string]string)
	var order []string
	for _, n := range names {
		f := st.Fingerprint
		if n == name {
			if !consistent {
				continue
			}
		} else if obs := m.latest[n]; obs.consistent {
			f = obs.Status.Fingerprint
			if owners[f] == "" {
				owners[f] = n
			}
		} else {
			continue
		}
		if votes[f] == 0 {
			order = append(order, f)
		}
		votes[f]++
	}
	for _, f := range order {
		if fp == "" || votes[f] > votes[fp] {
			fp = f
		}
	}
	return fp, owners[fp]
}

func (m *Monitor) sortedNames() []string {
	names := make([]string, 0, len(m.latest))
	for name := range m.latest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func directionOf(forward bool) sequencer.Direction {
	if forward {
		return sequencer.Forward
	}
	return sequencer.Backward
}
