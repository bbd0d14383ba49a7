// Package board provides the behavior common to mrm CAN bus boards:
// the device table, the shared command set, liveness and error
// bookkeeping. Board specific drivers embed Base.
package board

import (
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/us1.go/pkg/can"
	fx "github.com/robotalks/us1.go/pkg/framework"
)

// Device is a registered device on a board.
type Device struct {
	Name   string
	Number int
	// InboundID receives commands sent to the device.
	InboundID uint32
	// OutboundID carries frames sent by the device.
	OutboundID uint32

	Alive       bool
	LastMessage time.Time
	FPS         uint16

	lastScan time.Time
}

// DefaultScanInterval limits how often a dead device is pinged.
const DefaultScanInterval = time.Second

// Base implements the common board logic.
type Base struct {
	Name       string
	MaxDevices int
	Transport  can.Sender
	Clock      fx.Clock
	Reporter   ErrorReporter
	// ScanInterval limits how often a dead device is pinged.
	ScanInterval time.Duration
	// AliveTimeout marks a device dead when nothing is received
	// for longer. Zero keeps a device alive once it's seen.
	AliveTimeout time.Duration

	devices []*Device
	errMsg  string
	lock    sync.RWMutex
}

// NewBase creates a Base.
func NewBase(name string, maxDevices int) *Base {
	return &Base{
		Name:         name,
		MaxDevices:   maxDevices,
		ScanInterval: DefaultScanInterval,
	}
}

// Add registers a device and returns its number.
func (b *Base) Add(name string, inboundID, outboundID uint32) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.MaxDevices > 0 && len(b.devices) >= b.MaxDevices {
		return -1, ErrTooManyDevices
	}
	n := len(b.devices)
	b.devices = append(b.devices, &Device{
		Name:       name,
		Number:     n,
		InboundID:  inboundID,
		OutboundID: outboundID,
	})
	glog.V(2).Infof("%s %d %q added: in=0x%03x out=0x%03x", b.Name, n, name, inboundID, outboundID)
	return n, nil
}

// Count returns the number of registered devices.
func (b *Base) Count() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.devices)
}

// Device returns a snapshot of the device.
func (b *Base) Device(n int) (Device, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if n < 0 || n >= len(b.devices) {
		return Device{}, false
	}
	return *b.devices[n], true
}

// Devices returns snapshots of all devices in registration order.
func (b *Base) Devices() []Device {
	b.lock.RLock()
	defer b.lock.RUnlock()
	devs := make([]Device, len(b.devices))
	for n, d := range b.devices {
		devs[n] = *d
	}
	return devs
}

// IsForMe tells if the frame is sent by the device.
func (b *Base) IsForMe(f can.Frame, dev Device) bool {
	return !f.Extended && f.ID == dev.OutboundID
}

// DecodeCommon handles the commands shared by all boards. Any frame
// from the device marks it alive. Returns true if the frame is fully
// handled.
func (b *Base) DecodeCommon(f can.Frame, n int) bool {
	now := b.now()
	b.lock.Lock()
	if n < 0 || n >= len(b.devices) {
		b.lock.Unlock()
		return false
	}
	dev := b.devices[n]
	dev.Alive, dev.LastMessage = true, now
	cmd, ok := f.Command()
	if !ok {
		b.lock.Unlock()
		return false
	}
	switch cmd {
	case CommandReportAlive, CommandNotification:
		b.lock.Unlock()
		return true
	case CommandFPSSending:
		if len(f.Data) >= 3 {
			dev.FPS = uint16(f.Data[1]) | uint16(f.Data[2])<<8
		}
		b.lock.Unlock()
		return true
	case CommandError:
		b.lock.Unlock()
		var code byte
		if len(f.Data) > 1 {
			code = f.Data[1]
		}
		b.ErrorAdd(&f, n, &RemoteError{Code: code}, false)
		return true
	}
	b.lock.Unlock()
	return false
}

// Send sends a command with parameters to the device.
func (b *Base) Send(n int, cmd byte, params ...byte) error {
	dev, ok := b.Device(n)
	if !ok {
		return ErrNoDevice
	}
	if b.Transport == nil {
		return ErrNoTransport
	}
	data := make([]byte, 0, 1+len(params))
	data = append(append(data, cmd), params...)
	return b.Transport.Send(can.Frame{ID: dev.InboundID, Data: data})
}

// Start asks the device to measure and stream readings.
func (b *Base) Start(n int) error {
	return b.Send(n, CommandSensorsMeasureContinuous)
}

// Stop asks the device to stop streaming.
func (b *Base) Stop(n int) error {
	return b.Send(n, CommandSensorsMeasureStop)
}

// AliveWithOptionalScan refreshes and returns the liveness of the device.
// When scan is set, a dead device is pinged, no more often than
// ScanInterval. The reply is handled by DecodeCommon.
func (b *Base) AliveWithOptionalScan(n int, scan bool) bool {
	now := b.now()
	b.lock.Lock()
	if n < 0 || n >= len(b.devices) {
		b.lock.Unlock()
		return false
	}
	dev := b.devices[n]
	if dev.Alive && b.AliveTimeout > 0 && now.Sub(dev.LastMessage) > b.AliveTimeout {
		dev.Alive = false
		glog.V(2).Infof("%s %d inactive", b.Name, n)
	}
	if dev.Alive || !scan {
		alive := dev.Alive
		b.lock.Unlock()
		return alive
	}
	if !dev.lastScan.IsZero() && now.Sub(dev.lastScan) < b.ScanInterval {
		b.lock.Unlock()
		return false
	}
	dev.lastScan = now
	b.lock.Unlock()
	if err := b.Send(n, CommandReportAlive); err != nil {
		glog.Warningf("%s %d scan: %v", b.Name, n, err)
	}
	return false
}

// ErrorAdd records an error. n is the device number or -1.
func (b *Base) ErrorAdd(f *can.Frame, n int, err error, fatal bool) {
	rec := ErrorRecord{Board: b.Name, Device: n, Frame: f, Err: err, Fatal: fatal}
	msg := (&DeviceError{Board: b.Name, Device: n, Err: err}).Error()
	b.lock.Lock()
	b.errMsg = msg
	b.lock.Unlock()
	switch {
	case fatal:
		glog.Errorf("%s", msg)
	case f != nil:
		glog.Warningf("%s (frame %s)", msg, *f)
	default:
		glog.Warningf("%s", msg)
	}
	if r := b.Reporter; r != nil {
		r.ReportError(rec)
	}
}

// ErrorMessage returns the last recorded error message.
func (b *Base) ErrorMessage() string {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.errMsg
}

// ErrorClear clears the last recorded error message.
func (b *Base) ErrorClear() {
	b.lock.Lock()
	b.errMsg = ""
	b.lock.Unlock()
}

func (b *Base) now() time.Time {
	return fx.ClockOrDefault(b.Clock).Time()
}
