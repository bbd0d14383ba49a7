package comm

import (
	"context"
	"errors"

	"github.com/golang/glog"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1"
	"github.com/robotalks/us1.go/pkg/l1/msgs"
)

// ErrNoLoop indicates the Registrar doesn't run in a Loop.
var ErrNoLoop = errors.New("registrar not running in a loop")

// Registrar implements Registrar with Pipe and integrated with Loop.
type Registrar struct {
	pipe Pipe
}

// Init initializes the Registrar with defaults.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = msgs.HandleTypedMsgFunc(r.handleTypedMsg)
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

// Run runs the pipe directly, for registrars created after
// the loop started. ctx must come from the loop.
func (r *Registrar) Run(ctx context.Context) error {
	return r.pipe.Run(ctx)
}

func (r *Registrar) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	if loopCtl == nil {
		return ErrNoLoop
	}
	switch {
	case typed.IsReply():
		// a controller doesn't send commands.
		return nil
	case typed.IsCommand():
		loopCtl.PostMessage(&l1.CommandMsg{Command: &command{seq: typed.Sequence, msg: msg, pipe: &r.pipe}})
	default:
		loopCtl.PostMessage(msg)
	}
	loopCtl.TriggerNext()
	return nil
}

type command struct {
	seq  uint32
	msg  fx.Message
	pipe *Pipe
}

func (c *command) Msg() fx.Message {
	return c.msg
}

func (c *command) Done(msg fx.Message) error {
	return c.pipe.SendCommandMsg(msg, c.seq)
}

// RegistrarMux registers L1 controller with multiple Registrars.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// SendEvent implements Registrar.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// Add adds more registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// CommandHandler processes a command and returns the reply.
// A nil reply is sent as CommandOK.
type CommandHandler func(fx.ControlContext, fx.Message) (fx.Message, error)

// Commands dispatches commands in the loop by type ID.
type Commands struct {
	handlers map[uint32]CommandHandler
}

// Handle registers the handler for commands of typeID.
func (c *Commands) Handle(typeID uint32, h CommandHandler) *Commands {
	if c.handlers == nil {
		c.handlers = make(map[uint32]CommandHandler)
	}
	c.handlers[typeID] = h
	return c
}

// Control implements Controller.
func (c *Commands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		msg := cmdMsg.Command.Msg()
		s, ok := msg.(msgs.SerializableMessage)
		if !ok {
			return
		}
		h := c.handlers[s.TypeID()]
		if h == nil {
			return
		}
		mctx.MessageTaken()
		reply, err := h(cc, msg)
		switch {
		case err != nil:
			reply = msgs.NewCommandErr(err)
		case reply == nil:
			reply = msgs.NewCommandOK()
		}
		if err := cmdMsg.Command.Done(reply); err != nil {
			glog.Warningf("reply %T: %v", msg, err)
		}
	}))
	return nil
}

// UnsupportedCommands replies left-over commands as unsupported.
type UnsupportedCommands struct {
}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if cmdMsg, ok := mctx.CurrentMessage().(*l1.CommandMsg); ok {
			mctx.MessageTaken()
			if err := cmdMsg.Command.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand)); err != nil {
				glog.Warningf("reply unsupported %T: %v", cmdMsg.Command.Msg(), err)
			}
		}
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, c)
}
