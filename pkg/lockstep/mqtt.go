package lockstep

import (
	"strings"

	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/comm/mqtt"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// Subscribe feeds status events published to q into m. onDiverge is
// called for every divergence found.
func (m *Monitor) Subscribe(q *mqtt.Queue, onDiverge func(Divergence)) []*mqtt.Subscription {
	return []*mqtt.Subscription{
		q.Sub("+/+/"+mqtt.TopicMsg, mqtt.Handler(func(topic string, payload []byte) {
			divs, _ := m.ObservePacket(strings.TrimSuffix(topic, "/"+mqtt.TopicMsg), payload)
			if onDiverge != nil {
				for _, d := range divs {
					onDiverge(d)
				}
			}
		})),
		q.Sub("+/+/"+mqtt.TopicMeta, mqtt.Handler(func(topic string, payload []byte) {
			if len(payload) == 0 {
				m.Forget(strings.TrimSuffix(topic, "/"+mqtt.TopicMeta))
			}
		})),
	}
}

// ObservePacket decodes an L1 packet sent by controller name and
// observes it if it's a SequencerStatus event. Other messages are
// ignored.
func (m *Monitor) ObservePacket(name string, pkt []byte) ([]Divergence, error) {
	if _, ok := l1.ParseControllerRef(name); !ok {
		return nil, nil
	}
	typed, err := msgs.DecodeTyped(pkt)
	if err != nil {
		return nil, err
	}
	if typed.TypeId != msgs.SequencerStatusEventTypeID {
		return nil, nil
	}
	msg, err := typed.Decode()
	if err != nil {
		return nil, err
	}
	return m.Observe(name, msg.(*msgs.SequencerStatus)), nil
}
