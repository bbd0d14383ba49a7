package slcan

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.bug.st/serial"
)

// PortOptions describes the serial connection to the adapter.
type PortOptions struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// Normalize validates the options and applies defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}
	switch parity := strings.TrimSpace(strings.ToUpper(opts.Parity)); parity {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// SerialMode converts the options into go.bug.st/serial Mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// Config defines how to reach the adapter.
type Config struct {
	Port    string      `yaml:"port"`
	Bitrate int         `yaml:"bitrate"`
	Serial  PortOptions `yaml:"serial"`
}

var defaultConfig = Config{
	Port:    "/dev/ttyACM0",
	Bitrate: DefaultBitrate,
}

func init() {
	if val := os.Getenv("SLCAN_PORT"); val != "" {
		defaultConfig.Port = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "can-port", defaultConfig.Port, "Serial device of the SLCAN adapter.")
	flag.IntVar(&defaultConfig.Bitrate, "can-bitrate", defaultConfig.Bitrate, "CAN bus bitrate.")
	flag.IntVar(&defaultConfig.Serial.BaudRate, "can-baud", defaultConfig.Serial.BaudRate, "Serial baud rate, 0 for default.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Open opens the serial port and the CAN channel.
func (c *Config) Open() (*Bus, error) {
	if _, err := BitrateCommand(c.Bitrate); err != nil {
		return nil, fmt.Errorf("bitrate %d: %w", c.Bitrate, err)
	}
	mode, err := c.Serial.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(c.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Port, err)
	}
	bus := NewBus(port)
	bus.Bitrate = c.Bitrate
	if err := bus.Open(); err != nil {
		port.Close()
		return nil, err
	}
	return bus, nil
}
