package l1

import (
	"fmt"
	"strings"
	"time"
)

// ControllerRef names a controller as type/id.
type ControllerRef struct {
	// Type groups controllers running the same order table.
	Type string
	// ID is unique within Type, usually the machine ID.
	ID string
}

// ParseControllerRef parses the form produced by Name.
func ParseControllerRef(name string) (ref ControllerRef, ok bool) {
	typ, id, found := strings.Cut(name, "/")
	if !found {
		return
	}
	ref = ControllerRef{Type: typ, ID: id}
	return ref, ref.IsValid()
}

// Name is type/id, also the topic prefix of the controller.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid rejects empty parts and MQTT topic delimiters/wildcards.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != "" && !strings.ContainsAny(r.Type+r.ID, "/+#")
}

// StepMeta is the clock a controller advances with. Controllers with
// equal StepMeta select the same routine at the same tick.
type StepMeta struct {
	Epoch       time.Time     `json:"epoch"`
	Interval    time.Duration `json:"interval"`
	Fingerprint string        `json:"fingerprint"`
}

func (m StepMeta) String() string {
	return fmt.Sprintf("%s@%s+%s", m.Fingerprint, m.Epoch.UTC().Format(time.RFC3339), m.Interval)
}

// ControllerMeta is published with the controller.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Step        *StepMeta         `json:"step,omitempty"`
}

// ControllerInfo is what discovery reports.
type ControllerInfo struct {
	Ref  ControllerRef
	Meta ControllerMeta
}

// InStep tells whether both controllers run the same clock and order.
// Controllers not publishing StepMeta are never in step.
func (i ControllerInfo) InStep(other ControllerInfo) bool {
	a, b := i.Meta.Step, other.Meta.Step
	return a != nil && b != nil &&
		a.Epoch.Equal(b.Epoch) && a.Interval == b.Interval && a.Fingerprint == b.Fingerprint
}

// MatchLabels tells whether every selector label is present with the
// same value.
func (i ControllerInfo) MatchLabels(selector map[string]string) bool {
	for key, val := range selector {
		if v, ok := i.Meta.Labels[key]; !ok || v != val {
			return false
		}
	}
	return true
}
