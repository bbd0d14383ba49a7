package us1

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/us1.go/pkg/board"
	"github.com/robotalks/us1.go/pkg/can"
)

type fakeClock struct {
	now    time.Time
	slept  time.Duration
	onTick func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Time() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.slept += d
	if c.onTick != nil {
		c.onTick()
	}
}

// fakeBus records sent frames and lets a test reply to them.
type fakeBus struct {
	frames  []can.Frame
	onStart func(n int)
	starts  int
}

func (s *fakeBus) Send(f can.Frame) error {
	s.frames = append(s.frames, f)
	if cmd, _ := f.Command(); cmd == board.CommandSensorsMeasureContinuous {
		s.starts++
		if s.onStart != nil {
			s.onStart(s.starts)
		}
	}
	return nil
}

func (s *fakeBus) reset() {
	s.frames, s.starts = nil, 0
}

type fakeObserver struct {
	decoded      map[int]uint16
	attempts     int
	confirmed    []int
	unresponsive []int
}

func (o *fakeObserver) DistanceDecoded(slot int, mm uint16) {
	if o.decoded == nil {
		o.decoded = make(map[int]uint16)
	}
	o.decoded[slot] = mm
}
func (o *fakeObserver) StartAttempted(slot int)           { o.attempts++ }
func (o *fakeObserver) StartConfirmed(slot, attempts int) { o.confirmed = append(o.confirmed, attempts) }
func (o *fakeObserver) Unresponsive(slot int)             { o.unresponsive = append(o.unresponsive, slot) }

func measurement(id uint32, mm uint16) can.Frame {
	return can.Frame{ID: id, Data: []byte{board.CommandSensorsMeasureSending, byte(mm), byte(mm >> 8)}}
}

func newTestBoard(t *testing.T, sensors int) (*Board, *fakeClock, *fakeBus) {
	bus := &fakeBus{}
	clock := newFakeClock()
	b := NewBoard(bus)
	b.Clock = clock
	for n := 0; n < sensors; n++ {
		slot, err := b.Add("us")
		require.NoError(t, err)
		require.Equal(t, n, slot)
	}
	return b, clock, bus
}

func TestAddressesFor(t *testing.T) {
	table := DefaultAddressTable
	seen := make(map[uint32]bool)
	for slot := 0; slot < MaxDevices; slot++ {
		addrs, err := table.AddressesFor(slot)
		require.NoError(t, err)
		again, _ := table.AddressesFor(slot)
		require.Equal(t, addrs, again)
		require.False(t, seen[addrs.Inbound])
		require.False(t, seen[addrs.Outbound])
		seen[addrs.Inbound], seen[addrs.Outbound] = true, true
	}
	require.NoError(t, table.Validate())

	for _, slot := range []int{-1, MaxDevices, 100} {
		_, err := table.AddressesFor(slot)
		require.True(t, errors.Is(err, ErrSlotIndexOutOfRange))
	}
}

func TestAddressTableValidate(t *testing.T) {
	table := DefaultAddressTable
	table[3].Outbound = table[4].Outbound
	require.Error(t, table.Validate())

	table = DefaultAddressTable
	table[0].Inbound = 0x800
	require.Error(t, table.Validate())
}

func TestBoardAdd(t *testing.T) {
	b, _, _ := newTestBoard(t, MaxDevices)
	b.Decode(measurement(0x311, 42))
	before := b.Slots()

	_, err := b.Add("us-extra")
	require.True(t, errors.Is(err, ErrTooManyDevices))
	require.Equal(t, MaxDevices, b.Count())
	require.Equal(t, "US1: too many devices: 8", b.ErrorMessage())
	require.Equal(t, before, b.Slots())

	for n, dev := range b.Devices() {
		addrs, _ := DefaultAddressTable.AddressesFor(n)
		require.Equal(t, addrs.Inbound, dev.InboundID)
		require.Equal(t, addrs.Outbound, dev.OutboundID)
	}
}

func TestBoardDecode(t *testing.T) {
	b, clock, _ := newTestBoard(t, 2)
	observer := &fakeObserver{}
	b.Observer = observer

	require.True(t, b.Decode(can.Frame{ID: 0x313, Data: []byte{board.CommandSensorsMeasureSending, 0x34, 0x12}}))
	states := b.Slots()
	require.Equal(t, uint16(0x1234), states[1].Distance)
	require.Equal(t, clock.now, states[1].Updated)
	require.True(t, states[1].Alive)
	require.True(t, states[1].Fresh)
	require.Zero(t, states[0].Distance)
	require.True(t, states[0].Updated.IsZero())
	require.Equal(t, map[int]uint16{1: 0x1234}, observer.decoded)

	require.False(t, b.Decode(measurement(0x315, 1)), "slot not registered")
	require.False(t, b.Decode(measurement(0x310, 1)), "inbound ID")
	require.False(t, b.Decode(can.Frame{ID: 0x311, Extended: true, Data: []byte{board.CommandSensorsMeasureSending, 1, 0}}))

	require.True(t, b.Decode(can.Frame{ID: 0x311, Data: []byte{board.CommandReportAlive}}))
	require.Empty(t, b.ErrorMessage())

	require.True(t, b.Decode(can.Frame{ID: 0x311, Data: []byte{0x55}}))
	require.Equal(t, "US1 0: unknown command", b.ErrorMessage())
	require.True(t, b.Decode(can.Frame{ID: 0x311, Data: []byte{board.CommandSensorsMeasureSending, 1}}))
	require.Equal(t, "US1 0: malformed measurement", b.ErrorMessage())

	require.True(t, b.Decode(measurement(0x311, 7)))
	require.Equal(t, uint16(7), b.Slots()[0].Distance)
}

func TestBoardDecodeTimestampMonotonic(t *testing.T) {
	b, clock, _ := newTestBoard(t, 1)
	b.Decode(measurement(0x311, 1))
	last := clock.now
	clock.now = clock.now.Add(-time.Second)
	b.Decode(measurement(0x311, 2))
	state := b.Slots()[0]
	require.Equal(t, uint16(2), state.Distance)
	require.Equal(t, last, state.Updated)
}

func TestBoardReadingInvalidSlot(t *testing.T) {
	b, _, bus := newTestBoard(t, 1)
	for _, slot := range []int{-1, 1, MaxDevices} {
		mm, err := b.Reading(slot)
		require.Zero(t, mm)
		require.True(t, errors.Is(err, ErrInvalidSlot))
	}
	require.Empty(t, bus.frames)
	require.Contains(t, b.ErrorMessage(), "invalid slot")
}

func TestBoardReadingFresh(t *testing.T) {
	b, clock, bus := newTestBoard(t, 1)
	b.Decode(measurement(0x311, 321))
	clock.now = clock.now.Add(b.InactivityAllowed)

	for n := 0; n < 2; n++ {
		mm, err := b.Reading(0)
		require.NoError(t, err)
		require.Equal(t, uint16(321), mm)
	}
	require.Empty(t, bus.frames)
	require.Zero(t, clock.slept)
}

func TestBoardReadingUnresponsive(t *testing.T) {
	b, clock, bus := newTestBoard(t, 1)
	observer := &fakeObserver{}
	b.Observer = observer

	mm, err := b.Reading(0)
	require.Zero(t, mm)
	require.True(t, errors.Is(err, ErrDeviceUnresponsive))
	var devErr *DeviceError
	require.True(t, errors.As(err, &devErr))
	require.Equal(t, 0, devErr.Device)

	require.Equal(t, DefaultStartAttempts, bus.starts)
	require.Equal(t, time.Duration(DefaultStartAttempts)*DefaultStartWait, clock.slept)
	require.Equal(t, "US1 0: dead", b.ErrorMessage())
	require.Equal(t, DefaultStartAttempts, observer.attempts)
	require.Equal(t, []int{0}, observer.unresponsive)
	for _, f := range bus.frames {
		require.Equal(t, uint32(0x310), f.ID)
	}
	// a ping and the start commands
	require.Len(t, bus.frames, DefaultStartAttempts+1)
	require.Equal(t, []byte{board.CommandReportAlive}, bus.frames[0].Data)

	bus.reset()
	b.ErrorClear()
	mm, err = b.Reading(0)
	require.Zero(t, mm)
	require.True(t, errors.Is(err, ErrDeviceUnresponsive))
	require.Equal(t, DefaultStartAttempts, bus.starts, "slot stays retriable")
}

func TestBoardReadingConfirmed(t *testing.T) {
	for _, k := range []int{1, 3, DefaultStartAttempts} {
		b, _, bus := newTestBoard(t, 2)
		observer := &fakeObserver{}
		b.Observer = observer
		bus.onStart = func(n int) {
			if n == k {
				b.Decode(measurement(0x313, 0x0abc))
			}
		}
		mm, err := b.Reading(1)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x0abc), mm)
		assert.Equal(t, k, bus.starts, "no start command after attempt %d", k)
		assert.Equal(t, []int{k}, observer.confirmed)
		assert.Empty(t, b.ErrorMessage())
	}
}

func TestBoardReadingConfirmedWhilePolling(t *testing.T) {
	b, clock, bus := newTestBoard(t, 1)
	polls := 0
	clock.onTick = func() {
		if polls++; polls == 10 {
			b.Decode(measurement(0x311, 55))
		}
	}
	mm, err := b.Reading(0)
	require.NoError(t, err)
	require.Equal(t, uint16(55), mm)
	require.Equal(t, 1, bus.starts)
	require.Equal(t, 10*DefaultPollInterval, clock.slept)
}

func TestBoardReadingStale(t *testing.T) {
	b, clock, bus := newTestBoard(t, 1)
	b.Decode(measurement(0x311, 100))
	clock.now = clock.now.Add(b.InactivityAllowed + time.Millisecond)
	bus.onStart = func(n int) {
		b.Decode(measurement(0x311, 200))
	}
	mm, err := b.Reading(0)
	require.NoError(t, err)
	require.Equal(t, uint16(200), mm)
	require.Equal(t, 1, bus.starts)
}

func TestBoardReadingWindows(t *testing.T) {
	testCases := []struct {
		name       string
		age        time.Duration
		confirmAge time.Duration
		starts     int
		err        error
	}{
		{"fresh beyond confirm window", 50 * time.Millisecond, -1, 0, nil},
		{"fresh at inactivity allowance", 100 * time.Millisecond, -1, 0, nil},
		{"confirmed inside window", 101 * time.Millisecond, 19 * time.Millisecond, 1, nil},
		{"not confirmed at window", 101 * time.Millisecond, 20 * time.Millisecond, 2, ErrDeviceUnresponsive},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, clock, bus := newTestBoard(t, 1)
			b.InactivityAllowed = 100 * time.Millisecond
			b.ConfirmWindow = 20 * time.Millisecond
			b.StartAttempts = 2
			b.Decode(measurement(0x311, 40))
			clock.now = clock.now.Add(tc.age)
			bus.onStart = func(n int) {
				if n != 1 || tc.confirmAge < 0 {
					return
				}
				now := clock.now
				clock.now = now.Add(-tc.confirmAge)
				b.Decode(measurement(0x311, 41))
				clock.now = now
			}
			mm, err := b.Reading(0)
			require.Equal(t, tc.starts, bus.starts)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
				require.Zero(t, mm)
				return
			}
			require.NoError(t, err)
			if tc.starts > 0 {
				require.Equal(t, uint16(41), mm)
			} else {
				require.Equal(t, uint16(40), mm)
			}
		})
	}
}

func TestBoardAliveTimeout(t *testing.T) {
	b, clock, bus := newTestBoard(t, 2)
	require.Equal(t, DefaultAliveTimeout, b.AliveTimeout)
	b.Decode(measurement(0x311, 10))
	b.Decode(measurement(0x313, 20))
	clock.now = clock.now.Add(b.AliveTimeout)
	b.Decode(measurement(0x313, 21))
	clock.now = clock.now.Add(time.Millisecond)

	states := b.Slots()
	require.False(t, states[0].Alive)
	require.True(t, states[1].Alive)

	var out bytes.Buffer
	require.NoError(t, b.Test(&out))
	require.Equal(t, "21 \n", out.String())
	require.Empty(t, bus.frames, "a silent sensor is skipped")
}

func TestBoardPrintReadings(t *testing.T) {
	b, _, _ := newTestBoard(t, 3)
	b.Decode(measurement(0x311, 5))
	b.Decode(measurement(0x315, 1234))
	var out bytes.Buffer
	require.NoError(t, b.PrintReadings(&out))
	require.Equal(t, "US:   5   0 1234", out.String())

	empty, _, _ := newTestBoard(t, 0)
	out.Reset()
	require.NoError(t, empty.PrintReadings(&out))
	require.Equal(t, "US:", out.String())
}

func TestBoardTest(t *testing.T) {
	b, clock, bus := newTestBoard(t, 3)
	var out bytes.Buffer

	require.NoError(t, b.Test(&out))
	require.Empty(t, out.String(), "nothing alive")

	b.Decode(measurement(0x311, 10))
	b.Decode(measurement(0x315, 30))
	clock.now = clock.now.Add(b.TestInterval + time.Millisecond)
	// keep readings fresh
	b.Decode(measurement(0x311, 11))
	b.Decode(measurement(0x315, 31))
	bus.reset()

	require.NoError(t, b.Test(&out))
	require.Equal(t, "11 | 31 \n", out.String())
	require.Empty(t, bus.frames)

	out.Reset()
	clock.now = clock.now.Add(b.TestInterval)
	require.NoError(t, b.Test(&out))
	require.Empty(t, out.String(), "too soon")
}

func TestBoardStopAll(t *testing.T) {
	b, _, bus := newTestBoard(t, 2)
	require.NoError(t, b.StopAll())
	require.Equal(t, []can.Frame{
		{ID: 0x310, Data: []byte{board.CommandSensorsMeasureStop}},
		{ID: 0x312, Data: []byte{board.CommandSensorsMeasureStop}},
	}, bus.frames)
}
