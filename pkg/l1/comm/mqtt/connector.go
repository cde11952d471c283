package mqtt

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/comm"
)

// DefaultDiscoverTimeout is how long Discover collects retained metas.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector finds controllers by their retained meta and connects
// them through the broker.
type Connector struct {
	DiscoverTimeout time.Duration

	options *paho.ClientOptions
	prefix  string
	qos     byte
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	qos, err := QoSFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, options: opts, prefix: prefix, qos: qos}, nil
}

// ParseMeta converts a retained meta message into ControllerInfo.
// An empty payload means the controller is gone.
func ParseMeta(topic string, payload []byte) (info l1.ControllerInfo, ok bool) {
	name, found := strings.CutSuffix(topic, "/"+TopicMeta)
	if len(payload) == 0 || !found {
		return
	}
	if info.Ref, ok = l1.ParseControllerRef(name); !ok {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		return info, false
	}
	return info, true
}

func (c *Connector) newQueue() *Queue {
	q := NewQueue(c.options, c.prefix)
	q.QoS = c.qos
	return q
}

func connect(q *Queue) error {
	token := q.Connect()
	token.Wait()
	return token.Error()
}

// Discover implements l1.Connector. Results are sorted by name.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	q := c.newQueue()
	if err := connect(q); err != nil {
		return nil, err
	}
	defer q.Close()

	infoCh := make(chan l1.ControllerInfo, 16)
	sub := q.Sub("+/+/"+TopicMeta, func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case infoCh <- info:
			case <-ctx.Done():
			}
		}
	})
	defer sub.Close()

	timeout := c.DiscoverTimeout
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	found := make(map[string]l1.ControllerInfo)
	for {
		select {
		case info := <-infoCh:
			found[info.Ref.Name()] = info
		case <-timer.C:
			return sortInfos(found), nil
		case <-ctx.Done():
			return sortInfos(found), ctx.Err()
		}
	}
}

func sortInfos(found map[string]l1.ControllerInfo) []l1.ControllerInfo {
	infos := make([]l1.ControllerInfo, 0, len(found))
	for _, info := range found {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Ref.Name() < infos[j].Ref.Name() })
	return infos
}

// Connect implements l1.Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	conn := &ControllerConn{Queue: c.newQueue()}
	conn.Init(NewPacketReadWriter(conn.Queue).ForConnector(ref))
	if err := connect(conn.Queue); err != nil {
		return nil, err
	}
	return conn, nil
}

// ControllerConn is a comm.ControllerConn through the broker.
type ControllerConn struct {
	comm.ControllerConn
	Queue *Queue
}

// AddToLoop implements LoopAdder. The client disconnects when the
// loop stops.
func (c *ControllerConn) AddToLoop(l *fx.Loop) {
	c.ControllerConn.AddToLoop(l)
	l.AddRunnable(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return c.Queue.Close()
	}))
}
