package us1

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1"
	"github.com/robotalks/us1.go/pkg/l1/comm"
	"github.com/robotalks/us1.go/pkg/l1/msgs"
)

// Controller exposes a Board to L2 through a Registrar.
type Controller struct {
	Board     *Board
	Registrar l1.Registrar
	// PublishInterval is the interval of UltrasonicReadings events,
	// 0 disables publishing.
	PublishInterval time.Duration
	// SelfTest prints readings of alive sensors to Output.
	SelfTest bool
	Output   io.Writer

	commands    comm.Commands
	lastPublish time.Time
}

// NewController creates a Controller.
func NewController(b *Board, reg l1.Registrar) *Controller {
	c := &Controller{
		Board:           b,
		Registrar:       reg,
		PublishInterval: DefaultPublishInterval,
		Output:          os.Stdout,
	}
	c.commands.
		Handle(msgs.UltrasonicReadQueryTypeID, c.readQuery).
		Handle(msgs.UltrasonicReadingsQueryTypeID, c.readingsQuery)
	return c
}

// NewController creates a Controller from config.
func (c *Config) NewController(b *Board, reg l1.Registrar) *Controller {
	ctl := NewController(b, reg)
	ctl.PublishInterval = c.PublishInterval
	ctl.SelfTest = c.SelfTest
	return ctl
}

// Name implements Named.
func (c *Controller) Name() string {
	return "us1"
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvSense, fx.ControlFunc(c.sense))
	loop.AddController(fx.PrLvControl, &c.commands)
	loop.AddRunnable(c)
}

// Run implements Runnable. Sensors are stopped when the loop stops.
func (c *Controller) Run(ctx context.Context) error {
	<-ctx.Done()
	if err := c.Board.StopAll(); err != nil {
		glog.Warningf("%s stop sensors: %v", c.Name(), err)
	}
	return ctx.Err()
}

func (c *Controller) sense(cc fx.ControlContext) error {
	if c.SelfTest {
		if err := c.Board.Test(c.Output); err != nil {
			return err
		}
	}
	if c.PublishInterval <= 0 || c.Registrar == nil {
		return nil
	}
	now := cc.Time()
	if !c.lastPublish.IsZero() && now.Sub(c.lastPublish) < c.PublishInterval {
		return nil
	}
	c.lastPublish = now
	return c.Registrar.SendEvent(cc.Context(), c.Readings(now))
}

// Readings returns the last readings as an event. Only fresh
// readings are valid.
func (c *Controller) Readings(now time.Time) *msgs.UltrasonicReadings {
	states := c.Board.Slots()
	event := &msgs.UltrasonicReadings{
		Readings:  make([]*msgs.UltrasonicReading, len(states)),
		Timestamp: now.UnixNano() / int64(time.Millisecond),
	}
	for n, state := range states {
		event.Readings[n] = &msgs.UltrasonicReading{
			Slot:     uint32(state.Slot),
			Name:     state.Name,
			Distance: uint32(state.Distance),
			Valid:    state.Fresh,
		}
	}
	return event
}

func (c *Controller) read(slot int) (*msgs.UltrasonicReading, error) {
	mm, err := c.Board.Reading(slot)
	if errors.Is(err, ErrInvalidSlot) {
		return nil, err
	}
	dev, _ := c.Board.Device(slot)
	return &msgs.UltrasonicReading{
		Slot:     uint32(slot),
		Name:     dev.Name,
		Distance: uint32(mm),
		Valid:    err == nil,
	}, nil
}

func (c *Controller) readQuery(cc fx.ControlContext, msg fx.Message) (fx.Message, error) {
	query := msg.(*msgs.UltrasonicReadQuery)
	if query.Slot >= MaxDevices {
		return nil, ErrInvalidSlot
	}
	return c.read(int(query.Slot))
}

func (c *Controller) readingsQuery(cc fx.ControlContext, msg fx.Message) (fx.Message, error) {
	reply := &msgs.UltrasonicReadingsReply{}
	for slot := 0; slot < c.Board.Count(); slot++ {
		reading, err := c.read(slot)
		if err != nil {
			return nil, err
		}
		reply.Readings = append(reply.Readings, reading)
	}
	return reply, nil
}
