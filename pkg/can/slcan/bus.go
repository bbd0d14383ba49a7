package slcan

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/us1.go/pkg/can"
	fx "github.com/robotalks/us1.go/pkg/framework"
)

// Bus sends and receives CAN frames through an SLCAN adapter.
type Bus struct {
	ReadWriter io.ReadWriter
	Handler    can.FrameHandler
	Bitrate    int

	parser Parser
	lock   sync.Mutex
	closed bool
}

// DefaultBitrate is the CAN bitrate used by mrm boards.
const DefaultBitrate = 250000

// NewBus creates a Bus.
func NewBus(rw io.ReadWriter) *Bus {
	return &Bus{ReadWriter: rw, Bitrate: DefaultBitrate}
}

// Open closes any open channel, sets the bitrate and opens the channel.
// Replies from the adapter are consumed by Run.
func (b *Bus) Open() error {
	setup, err := BitrateCommand(b.Bitrate)
	if err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, cmd := range [][]byte{{'C', cr}, setup, {'O', cr}} {
		if _, err := b.ReadWriter.Write(cmd); err != nil {
			return err
		}
	}
	b.closed = false
	return nil
}

// Send implements can.Sender.
func (b *Bus) Send(f can.Frame) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return can.ErrClosed
	}
	glog.V(4).Infof("SND %s", f)
	_, err := WriteFrame(b.ReadWriter, f)
	return err
}

// Close closes the channel and the underlying port if it's a Closer.
func (b *Bus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	_, err := b.ReadWriter.Write([]byte{'C', cr})
	if closer, ok := b.ReadWriter.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Name implements Named.
func (b *Bus) Name() string {
	return "slcan"
}

// Run receives frames in the background until the context is done
// or the port fails.
func (b *Bus) Run(ctx context.Context) error {
	b.parser.Reset()
	dataCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.readLoop(subCtx, dataCh, errCh)
	for {
		select {
		case data := <-dataCh:
			for _, c := range data {
				b.applyParseResult(ctx, b.parser.Parse(c))
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AddToLoop implements LoopAdder.
func (b *Bus) AddToLoop(l *fx.Loop) {
	l.AddRunnable(b)
}

func (b *Bus) readLoop(ctx context.Context, dataCh chan []byte, errCh chan error) {
	buf := make([]byte, 64)
	for {
		n, err := b.ReadWriter.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case dataCh <- data:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (b *Bus) applyParseResult(ctx context.Context, pr ParseResult) {
	switch {
	case pr.Err == ErrAdapter:
		glog.Warningf("slcan: adapter replied error")
	case pr.Err != nil:
		glog.V(2).Infof("%v", pr.Err)
	case pr.Frame != nil:
		glog.V(4).Infof("RCV %s", *pr.Frame)
		if h := b.Handler; h != nil {
			h.HandleFrame(ctx, *pr.Frame)
		}
	}
}
