package comm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1/msgs"
)

var (
	// ErrNotCommand indicates a command is expected.
	ErrNotCommand = errors.New("message is not a command")
	// ErrNotEvent indicates an event is expected.
	ErrNotEvent = errors.New("message is not an event")
)

// Pipe exchanges typed messages over a PacketReadWriter. Received
// messages are passed to Handler.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendCommandMsg sends a command, or the reply of the command seq.
func (p *Pipe) SendCommandMsg(msg fx.Message, seq uint32) error {
	return p.send(msg, seq, ErrNotCommand, (*msgs.Typed).IsCommand)
}

// SendEventMsg sends an event.
func (p *Pipe) SendEventMsg(msg fx.Message) error {
	return p.send(msg, 0, ErrNotEvent, (*msgs.Typed).IsEvent)
}

func (p *Pipe) send(msg fx.Message, seq uint32, kindErr error, isKind func(*msgs.Typed) bool) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if !isKind(typed) {
		return kindErr
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendTyped encodes and writes a Typed message.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable. It returns nil when the peer closes.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
		if err := p.receive(ctx, pkt); err != nil {
			return err
		}
	}
}

// receive dispatches a packet. Malformed packets and unknown
// messages are dropped, while unknown commands are replied with
// CommandErr.
func (p *Pipe) receive(ctx context.Context, pkt []byte) error {
	typed, err := msgs.DecodeTyped(pkt)
	if err != nil {
		glog.Warningf("drop malformed packet (%d bytes): %v", len(pkt), err)
		return nil
	}
	msg, err := typed.Decode()
	if err != nil {
		if !typed.IsCommand() || typed.IsReply() {
			glog.V(2).Infof("drop message %x: %v", typed.TypeId, err)
			return nil
		}
		return p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence)
	}
	if p.Handler == nil {
		return nil
	}
	return p.Handler.HandleTypedMsg(ctx, msg, typed)
}

// Close closes the PacketReadWriter if it's a Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder. The PacketReadWriter is added
// too if it needs to run.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	switch rw := p.ReadWriter.(type) {
	case fx.LoopAdder:
		loop.Add(rw)
	case fx.Runnable:
		loop.AddRunnable(rw)
	}
	loop.AddRunnable(p)
}
