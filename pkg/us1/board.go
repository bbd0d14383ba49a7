// Package us1 drives a bank of mrm-us1 ultrasonic distance sensors
// sharing a CAN bus.
package us1

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/us1.go/pkg/board"
	"github.com/robotalks/us1.go/pkg/can"
	fx "github.com/robotalks/us1.go/pkg/framework"
)

// BoardName is the name of the board used in diagnostics.
const BoardName = "US1"

// Default timings.
const (
	DefaultInactivityAllowed = 100 * time.Millisecond
	DefaultConfirmWindow     = 100 * time.Millisecond
	DefaultStartWait         = 50 * time.Millisecond
	DefaultPollInterval      = time.Millisecond
	DefaultStartAttempts     = 8
	DefaultTestInterval      = 300 * time.Millisecond
	// DefaultAliveTimeout is how long a sensor stays alive without
	// sending anything.
	DefaultAliveTimeout      = 10 * DefaultInactivityAllowed
)

// Observer is notified about sensor activity.
type Observer interface {
	DistanceDecoded(slot int, mm uint16)
	StartAttempted(slot int)
	StartConfirmed(slot, attempts int)
	Unresponsive(slot int)
}

// SlotState is a snapshot of a registered sensor.
type SlotState struct {
	Slot      int
	Name      string
	Addresses Addresses
	Distance  uint16
	Updated   time.Time
	Alive     bool
	// Fresh is set when Updated is within the inactivity allowance.
	Fresh bool
}

// Board manages the mrm-us1 sensors.
type Board struct {
	*board.Base

	Addresses AddressTable
	// InactivityAllowed is the age of the last reading after which
	// the sensor must be started again.
	InactivityAllowed time.Duration
	// ConfirmWindow is the age of a reading accepted as the
	// confirmation of a start command.
	ConfirmWindow time.Duration
	// StartWait is how long to wait for confirmation of a start command.
	StartWait     time.Duration
	PollInterval  time.Duration
	StartAttempts int
	TestInterval  time.Duration
	Observer      Observer

	readings     [MaxDevices]uint16
	lastReadings [MaxDevices]time.Time
	lastTest     time.Time
	lock         sync.Mutex
}

// NewBoard creates a Board sending on transport.
func NewBoard(transport can.Sender) *Board {
	base := board.NewBase(BoardName, MaxDevices)
	base.Transport = transport
	base.AliveTimeout = DefaultAliveTimeout
	return &Board{
		Base:              base,
		Addresses:         DefaultAddressTable,
		InactivityAllowed: DefaultInactivityAllowed,
		ConfirmWindow:     DefaultConfirmWindow,
		StartWait:         DefaultStartWait,
		PollInterval:      DefaultPollInterval,
		StartAttempts:     DefaultStartAttempts,
		TestInterval:      DefaultTestInterval,
	}
}

// Add registers a sensor in the next free slot.
func (b *Board) Add(name string) (int, error) {
	slot := b.Count()
	if slot >= MaxDevices {
		err := fmt.Errorf("%w: %d", ErrTooManyDevices, slot)
		b.ErrorAdd(nil, -1, err, false)
		return -1, err
	}
	addrs, err := b.Addresses.AddressesFor(slot)
	if err != nil {
		b.ErrorAdd(nil, slot, err, true)
		return -1, err
	}
	return b.Base.Add(name, addrs.Inbound, addrs.Outbound)
}

// Decode handles a frame if it's sent by one of the sensors.
func (b *Board) Decode(f can.Frame) bool {
	for _, dev := range b.Devices() {
		if !b.IsForMe(f, dev) {
			continue
		}
		if !b.DecodeCommon(f, dev.Number) {
			b.decodeSensor(f, dev.Number)
		}
		return true
	}
	return false
}

// HandleFrame implements can.FrameHandler.
func (b *Board) HandleFrame(ctx context.Context, f can.Frame) {
	if !b.Decode(f) {
		glog.V(4).Infof("%s: frame %s ignored", b.Name, f)
	}
}

func (b *Board) decodeSensor(f can.Frame, slot int) {
	cmd, _ := f.Command()
	switch {
	case len(f.Data) == 0 || cmd != board.CommandSensorsMeasureSending:
		b.ErrorAdd(&f, slot, ErrUnknownCommand, false)
	case len(f.Data) < 3:
		b.ErrorAdd(&f, slot, ErrMalformedFrame, false)
	default:
		mm := uint16(f.Data[2])<<8 | uint16(f.Data[1])
		now := b.clock().Time()
		b.lock.Lock()
		if last := b.lastReadings[slot]; now.Before(last) {
			now = last
		}
		b.readings[slot], b.lastReadings[slot] = mm, now
		b.lock.Unlock()
		if o := b.Observer; o != nil {
			o.DistanceDecoded(slot, mm)
		}
	}
}

// Reading returns the distance in millimeters measured by the sensor.
// A sensor without a recent reading is started first. 0 is returned
// with the error when the slot is invalid or the sensor doesn't respond.
func (b *Board) Reading(slot int) (uint16, error) {
	if slot < 0 || slot >= b.Count() {
		err := &DeviceError{Board: b.Name, Device: slot, Err: ErrInvalidSlot}
		b.ErrorAdd(nil, slot, ErrInvalidSlot, false)
		return 0, err
	}
	b.AliveWithOptionalScan(slot, true)
	if !b.started(slot) {
		return 0, &DeviceError{Board: b.Name, Device: slot, Err: ErrDeviceUnresponsive}
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.readings[slot], nil
}

// started makes sure the sensor is streaming, starting it if needed.
func (b *Board) started(slot int) bool {
	clock := b.clock()
	if b.isFresh(slot, clock.Time(), b.InactivityAllowed, true) {
		return true
	}
	glog.V(2).Infof("%s %d starting", b.Name, slot)
	for attempt := 1; attempt <= b.StartAttempts; attempt++ {
		if err := b.Start(slot); err != nil {
			glog.Warningf("%s %d start: %v", b.Name, slot, err)
		}
		if o := b.Observer; o != nil {
			o.StartAttempted(slot)
		}
		startAt := clock.Time()
		for clock.Time().Sub(startAt) < b.StartWait {
			if b.isFresh(slot, clock.Time(), b.ConfirmWindow, false) {
				glog.V(2).Infof("%s %d confirmed after %d attempt(s)", b.Name, slot, attempt)
				if o := b.Observer; o != nil {
					o.StartConfirmed(slot, attempt)
				}
				return true
			}
			clock.Sleep(b.PollInterval)
		}
	}
	b.ErrorAdd(nil, slot, ErrDeviceUnresponsive, false)
	if o := b.Observer; o != nil {
		o.Unresponsive(slot)
	}
	return false
}

// isFresh tells if the last reading is younger than window,
// or as old as window when inclusive is set.
func (b *Board) isFresh(slot int, now time.Time, window time.Duration, inclusive bool) bool {
	b.lock.Lock()
	last := b.lastReadings[slot]
	b.lock.Unlock()
	if last.IsZero() {
		return false
	}
	age := now.Sub(last)
	if inclusive {
		return age <= window
	}
	return age < window
}

// Slots returns snapshots of registered sensors without
// starting any of them.
func (b *Board) Slots() []SlotState {
	now := b.clock().Time()
	devs := b.Devices()
	for n := range devs {
		devs[n].Alive = b.AliveWithOptionalScan(devs[n].Number, false)
	}
	states := make([]SlotState, len(devs))
	b.lock.Lock()
	defer b.lock.Unlock()
	for n, dev := range devs {
		states[n] = SlotState{
			Slot:      dev.Number,
			Name:      dev.Name,
			Addresses: Addresses{Inbound: dev.InboundID, Outbound: dev.OutboundID},
			Distance:  b.readings[n],
			Updated:   b.lastReadings[n],
			Alive:     dev.Alive,
		}
		states[n].Fresh = !states[n].Updated.IsZero() && now.Sub(states[n].Updated) <= b.InactivityAllowed
	}
	return states
}

// StopAll asks all sensors to stop streaming.
func (b *Board) StopAll() error {
	errs := &fx.AggregatedError{}
	for n := 0; n < b.Count(); n++ {
		errs.Add(b.Stop(n))
	}
	return errs.Aggregate()
}

// PrintReadings writes the last readings of all sensors in a line.
func (b *Board) PrintReadings(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("US:")
	n := b.Count()
	b.lock.Lock()
	for slot := 0; slot < n; slot++ {
		fmt.Fprintf(&sb, " %3d", b.readings[slot])
	}
	b.lock.Unlock()
	_, err := io.WriteString(w, sb.String())
	return err
}

// Test prints the readings of alive sensors, no more often
// than TestInterval.
func (b *Board) Test(w io.Writer) error {
	clock := b.clock()
	b.lock.Lock()
	due := b.lastTest.IsZero() || clock.Time().Sub(b.lastTest) > b.TestInterval
	b.lock.Unlock()
	if !due {
		return nil
	}
	var sb strings.Builder
	pass := 0
	for _, dev := range b.Devices() {
		if !b.AliveWithOptionalScan(dev.Number, false) {
			continue
		}
		if pass > 0 {
			sb.WriteString("| ")
		}
		pass++
		mm, _ := b.Reading(dev.Number)
		fmt.Fprintf(&sb, "%d ", mm)
	}
	b.lock.Lock()
	b.lastTest = clock.Time()
	b.lock.Unlock()
	if pass == 0 {
		return nil
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func (b *Board) clock() fx.Clock {
	return fx.ClockOrDefault(b.Clock)
}
