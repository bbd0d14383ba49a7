package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1"
	"github.com/robotalks/us1.go/pkg/l1/comm"
)

// Registrar implements l1.Registrar using MQTT.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	meta      []byte
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	// the retained meta is cleared when the controller goes away.
	opts.SetBinaryWill(topicPrefix+MetaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("robo:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue: NewQueue(opts, topicPrefix),
		Info:  info,
		meta:  meta,
	}
	r.Queue.OnConnect = func(*Queue) { r.publishMeta(r.meta) }
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForController(info.Ref))
	return r, nil
}

// MetaTopic returns the topic of retained metadata of a controller.
func MetaTopic(ref l1.ControllerRef) string {
	return ref.Name() + "/meta"
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Name implements Named.
func (r *Registrar) Name() string {
	return "mqtt:" + r.Info.Ref.Name()
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	if err := r.Queue.ConnectWait(DefaultConnectTimeout); err != nil {
		// the client keeps retrying in background.
		glog.Warningf("%s: %v", r.Name(), err)
	}
	<-ctx.Done()
	r.publishMeta(nil)
	return r.Queue.Close()
}

func (r *Registrar) publishMeta(meta []byte) {
	token := r.Queue.PubWith(MetaTopic(r.Info.Ref), meta, 1, true)
	if !token.WaitTimeout(DefaultConnectTimeout) {
		glog.Warningf("%s: publish meta timeout", r.Name())
	} else if err := token.Error(); err != nil {
		glog.Warningf("%s: publish meta: %v", r.Name(), err)
	}
}
