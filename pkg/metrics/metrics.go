// Package metrics exports the activity of mrm-us1 sensors to Prometheus.
package metrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/us1.go/pkg/board"
	"github.com/robotalks/us1.go/pkg/can"
	"github.com/robotalks/us1.go/pkg/us1"
)

// Prom collects sensor metrics. It implements us1.Observer
// and board.ErrorReporter.
type Prom struct {
	frames       prometheus.Counter
	decoded      *prometheus.CounterVec
	distance     *prometheus.GaugeVec
	attempts     *prometheus.CounterVec
	confirmed    *prometheus.CounterVec
	unresponsive *prometheus.CounterVec
	errors       *prometheus.CounterVec
}

// NewProm creates Prom and registers the collectors.
func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "us1_can_frames_received_total",
			Help: "CAN frames received from the bus.",
		}),
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "us1_measurements_total",
			Help: "Distance measurements decoded per sensor slot.",
		}, []string{"slot"}),
		distance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "us1_distance_millimeters",
			Help: "Last distance measured per sensor slot.",
		}, []string{"slot"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "us1_start_attempts_total",
			Help: "Start commands sent to sensors without recent readings.",
		}, []string{"slot"}),
		confirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "us1_start_confirmed_total",
			Help: "Sensor starts confirmed by a fresh reading.",
		}, []string{"slot"}),
		unresponsive: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "us1_unresponsive_total",
			Help: "Sensors not confirming any of the start attempts.",
		}, []string{"slot"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "us1_errors_total",
			Help: "Errors recorded by the board by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(p.frames, p.decoded, p.distance, p.attempts, p.confirmed, p.unresponsive, p.errors)
	return p
}

func slotLabel(slot int) string {
	return strconv.Itoa(slot)
}

// DistanceDecoded implements us1.Observer.
func (p *Prom) DistanceDecoded(slot int, mm uint16) {
	p.decoded.WithLabelValues(slotLabel(slot)).Inc()
	p.distance.WithLabelValues(slotLabel(slot)).Set(float64(mm))
}

// StartAttempted implements us1.Observer.
func (p *Prom) StartAttempted(slot int) {
	p.attempts.WithLabelValues(slotLabel(slot)).Inc()
}

// StartConfirmed implements us1.Observer.
func (p *Prom) StartConfirmed(slot, attempts int) {
	p.confirmed.WithLabelValues(slotLabel(slot)).Inc()
}

// Unresponsive implements us1.Observer.
func (p *Prom) Unresponsive(slot int) {
	p.unresponsive.WithLabelValues(slotLabel(slot)).Inc()
}

// ReportError implements board.ErrorReporter.
func (p *Prom) ReportError(rec board.ErrorRecord) {
	p.errors.WithLabelValues(ErrorKind(rec.Err)).Inc()
}

// ErrorKind returns the label of an error.
func ErrorKind(err error) string {
	var remoteErr *board.RemoteError
	switch {
	case errors.Is(err, us1.ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, us1.ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, us1.ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, us1.ErrDeviceUnresponsive):
		return "device_unresponsive"
	case errors.Is(err, us1.ErrTooManyDevices):
		return "too_many_devices"
	case errors.Is(err, us1.ErrSlotIndexOutOfRange):
		return "slot_index_out_of_range"
	case errors.As(err, &remoteErr):
		return "device_error"
	}
	return "other"
}

// FrameHandler counts the frames passed to h.
func (p *Prom) FrameHandler(h can.FrameHandler) can.FrameHandler {
	return can.HandleFrameFunc(func(ctx context.Context, f can.Frame) {
		p.frames.Inc()
		h.HandleFrame(ctx, f)
	})
}
