package us1

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1"
	"github.com/robotalks/us1.go/pkg/l1/msgs"
)

type testRegistrar struct {
	events []fx.Message
}

func (r *testRegistrar) SendEvent(ctx context.Context, msg fx.Message) error {
	r.events = append(r.events, msg)
	return nil
}

type testCommand struct {
	msg   fx.Message
	reply fx.Message
}

func (c *testCommand) Msg() fx.Message { return c.msg }

func (c *testCommand) Done(msg fx.Message) error {
	c.reply = msg
	return nil
}

func newTestController(t *testing.T) (*Controller, *fx.Loop, *fakeClock, *fakeBus, *testRegistrar) {
	b, clock, bus := newTestBoard(t, 2)
	reg := &testRegistrar{}
	ctl := NewController(b, reg)
	loop := fx.NewLoop()
	loop.Clock = clock
	loop.AddController(fx.PrLvSense, fx.ControlFunc(ctl.sense))
	loop.AddController(fx.PrLvControl, &ctl.commands)
	return ctl, loop, clock, bus, reg
}

func (c *testCommand) post(loop *fx.Loop) {
	loop.PostMessage(&l1.CommandMsg{Command: c})
	loop.RunOnce(context.Background())
}

func TestControllerReadQuery(t *testing.T) {
	ctl, loop, _, bus, _ := newTestController(t)
	ctl.PublishInterval = 0
	bus.onStart = func(n int) {
		ctl.Board.Decode(measurement(0x313, 480))
	}

	cmd := &testCommand{msg: &msgs.UltrasonicReadQuery{Slot: 1}}
	cmd.post(loop)
	require.Equal(t, &msgs.UltrasonicReading{Slot: 1, Name: "us", Distance: 480, Valid: true}, cmd.reply)

	cmd = &testCommand{msg: &msgs.UltrasonicReadQuery{Slot: 5}}
	cmd.post(loop)
	require.IsType(t, &msgs.CommandErr{}, cmd.reply)

	bus.onStart = nil
	cmd = &testCommand{msg: &msgs.UltrasonicReadQuery{Slot: 0}}
	cmd.post(loop)
	require.Equal(t, &msgs.UltrasonicReading{Slot: 0, Name: "us"}, cmd.reply)
}

func TestControllerReadingsQuery(t *testing.T) {
	ctl, loop, _, _, _ := newTestController(t)
	ctl.Board.Decode(measurement(0x311, 100))
	ctl.Board.Decode(measurement(0x313, 200))

	cmd := &testCommand{msg: &msgs.UltrasonicReadingsQuery{}}
	cmd.post(loop)
	require.Equal(t, &msgs.UltrasonicReadingsReply{Readings: []*msgs.UltrasonicReading{
		{Slot: 0, Name: "us", Distance: 100, Valid: true},
		{Slot: 1, Name: "us", Distance: 200, Valid: true},
	}}, cmd.reply)
}

func TestControllerPublish(t *testing.T) {
	ctl, loop, clock, bus, reg := newTestController(t)
	ctl.Board.Decode(measurement(0x311, 100))

	loop.RunOnce(context.Background())
	require.Len(t, reg.events, 1)
	require.Equal(t, &msgs.UltrasonicReadings{
		Readings: []*msgs.UltrasonicReading{
			{Slot: 0, Name: "us", Distance: 100, Valid: true},
			{Slot: 1, Name: "us"},
		},
		Timestamp: clock.now.UnixNano() / int64(time.Millisecond),
	}, reg.events[0])

	clock.now = clock.now.Add(ctl.PublishInterval / 2)
	loop.RunOnce(context.Background())
	require.Len(t, reg.events, 1)

	clock.now = clock.now.Add(ctl.PublishInterval)
	loop.RunOnce(context.Background())
	require.Len(t, reg.events, 2)
	event := reg.events[1].(*msgs.UltrasonicReadings)
	require.False(t, event.Readings[0].Valid, "stale")
	require.Empty(t, bus.frames, "publishing doesn't start sensors")
}

func TestControllerSelfTest(t *testing.T) {
	ctl, loop, _, _, _ := newTestController(t)
	var out bytes.Buffer
	ctl.PublishInterval = 0
	ctl.SelfTest, ctl.Output = true, &out
	ctl.Board.Decode(measurement(0x313, 77))
	loop.RunOnce(context.Background())
	require.Equal(t, "77 \n", out.String())
}

func TestControllerStopsSensors(t *testing.T) {
	ctl, _, _, bus, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, ctl.Run(ctx))
	require.Len(t, bus.frames, 2)
}
