package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/comm"
)

// Registrar registers a controller on a broker. Its meta is kept
// retained on type/id/meta while connected, the will clears it when
// the connection drops.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	metaTopic string
	meta      []byte
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	qos, err := QoSFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	r := &Registrar{
		Info:      info,
		metaTopic: Topics(info.Ref, TopicMeta),
		meta:      meta,
	}
	opts.SetBinaryWill(prefix+r.metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("lockstep:" + info.Ref.Name())
	}
	q := NewQueue(opts, prefix)
	q.QoS = qos
	r.Queue = q
	q.OnConnect = func(*Queue) { r.publishMeta(r.meta) }
	r.registrar.Init(NewPacketReadWriter(q).ForController(info.Ref))
	return r, nil
}

// SendEvent implements l1.Registrar. Events are dropped while
// disconnected, a later status supersedes them.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	if !r.Queue.Client.IsConnectionOpen() {
		return nil
	}
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(fx.NamedRun("mqtt:"+r.Info.Ref.Name(), r))
}

// Run implements Runnable. It connects, and clears the meta on exit.
func (r *Registrar) Run(ctx context.Context) error {
	if token := r.Queue.Connect(); token.Wait() && token.Error() != nil {
		// auto reconnect keeps trying.
		glog.Warningf("mqtt connect %s: %v", r.Info.Ref.Name(), token.Error())
	}
	<-ctx.Done()
	r.publishMeta(nil)
	r.Queue.Close()
	return ctx.Err()
}

func (r *Registrar) publishMeta(meta []byte) {
	token := r.Queue.PubWith(r.metaTopic, meta, 1, true)
	if token.Wait() && token.Error() != nil {
		glog.Errorf("mqtt publish %s: %v", r.metaTopic, token.Error())
	}
}
