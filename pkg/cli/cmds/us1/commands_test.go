package us1

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/us1.go/pkg/board"
	"github.com/robotalks/us1.go/pkg/can"
	"github.com/robotalks/us1.go/pkg/cli/sh"
	"github.com/robotalks/us1.go/pkg/us1"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Time() time.Time        { return c.now }
func (c *testClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

type testBus struct {
	frames []can.Frame
	onSend func(can.Frame)
}

func (s *testBus) Send(f can.Frame) error {
	s.frames = append(s.frames, f)
	if s.onSend != nil {
		s.onSend(f)
	}
	return nil
}

func measurement(id uint32, mm uint16) can.Frame {
	return can.Frame{ID: id, Data: []byte{board.CommandSensorsMeasureSending, byte(mm), byte(mm >> 8)}}
}

func newTestShell(t *testing.T) (*sh.Shell, *testBus, *bytes.Buffer) {
	bus := &testBus{}
	b := us1.NewBoard(bus)
	b.Clock = &testClock{now: time.Unix(1000, 0)}
	for _, name := range []string{"front", "rear"} {
		_, err := b.Add(name)
		require.NoError(t, err)
	}
	s := sh.New(b)
	var out bytes.Buffer
	s.Shell.SetOut(&out)
	return s, bus, &out
}

func TestSlotsCmd(t *testing.T) {
	s, _, out := newTestShell(t)
	s.Board.Decode(measurement(0x311, 250))
	require.NoError(t, s.Exec("slots"))
	require.Equal(t,
		"0 front in=0x310 out=0x311 250mm 0s ago\n"+
			"1 rear in=0x312 out=0x313 no reading (dead)\n",
		out.String())

	out.Reset()
	s.OutputJSON = true
	require.NoError(t, s.Exec("slots"))
	require.Contains(t, out.String(), `"name":"front","inbound":784,"outbound":785,"distance":250`)
}

func TestReadCmd(t *testing.T) {
	s, bus, out := newTestShell(t)
	bus.onSend = func(f can.Frame) {
		if f.ID == 0x312 && f.Data[0] == board.CommandSensorsMeasureContinuous {
			s.Board.Decode(measurement(0x313, 1234))
		}
	}
	require.NoError(t, s.Exec("read", "1"))
	require.Equal(t, "1234\n", out.String())

	out.Reset()
	s.OutputJSON = true
	require.NoError(t, s.Exec("r", "1"))
	require.Equal(t, "{\"slot\":1,\"distance\":1234}\n", out.String())

	err := s.Exec("read", "7")
	require.True(t, errors.Is(err, us1.ErrInvalidSlot))
	require.Error(t, s.Exec("read", "x"))
	require.Error(t, s.Exec("read"))

	out.Reset()
	s.OutputJSON = false
	require.NoError(t, s.Exec("error"))
	require.Equal(t, "US1 7: invalid slot\n", out.String())
	require.NoError(t, s.Exec("error", "clear"))
	require.Empty(t, s.Board.ErrorMessage())
}

func TestReadingsAndTestCmd(t *testing.T) {
	s, _, out := newTestShell(t)
	s.Board.Decode(measurement(0x311, 5))
	s.Board.Decode(measurement(0x313, 31))
	require.NoError(t, s.Exec("readings"))
	require.Equal(t, "US:   5  31\n", out.String())

	out.Reset()
	require.NoError(t, s.Exec("test"))
	require.Equal(t, "5 | 31 \n", out.String())
}

func TestStopCmd(t *testing.T) {
	s, bus, out := newTestShell(t)
	require.NoError(t, s.Exec("stop"))
	require.Equal(t, "OK\n", out.String())
	require.Len(t, bus.frames, 2)
	require.Equal(t, []byte{board.CommandSensorsMeasureStop}, bus.frames[1].Data)
}

func TestNoBoard(t *testing.T) {
	s := sh.New(nil)
	s.Shell.SetOut(&bytes.Buffer{})
	require.Equal(t, sh.ErrNoBoard, s.Exec("readings"))
	s.Interactive = false
	require.Equal(t, sh.ErrCommandExpected, s.Exec())
}
