package us1

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/us1.go/pkg/board"
	"github.com/robotalks/us1.go/pkg/can"
)

// DefaultPublishInterval is the interval of UltrasonicReadings events.
const DefaultPublishInterval = 200 * time.Millisecond

// Config defines the sensors and the timings of a Board.
type Config struct {
	// Sensors are names of sensors registered in slot order.
	Sensors []string `yaml:"sensors"`
	// Addresses overrides the default addresses from slot 0.
	Addresses []Addresses `yaml:"addresses"`

	InactivityAllowed time.Duration `yaml:"inactivity_allowed"`
	ConfirmWindow     time.Duration `yaml:"confirm_window"`
	StartWait         time.Duration `yaml:"start_wait"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	StartAttempts     int           `yaml:"start_attempts"`
	TestInterval      time.Duration `yaml:"test_interval"`
	ScanInterval      time.Duration `yaml:"scan_interval"`
	// AliveTimeout marks a silent sensor dead, 0 keeps it alive
	// once seen.
	AliveTimeout      time.Duration `yaml:"alive_timeout"`

	PublishInterval time.Duration `yaml:"publish_interval"`
	SelfTest        bool          `yaml:"self_test"`
}

var defaultConfig = Config{
	Sensors:           []string{"us1-0"},
	InactivityAllowed: DefaultInactivityAllowed,
	ConfirmWindow:     DefaultConfirmWindow,
	StartWait:         DefaultStartWait,
	PollInterval:      DefaultPollInterval,
	StartAttempts:     DefaultStartAttempts,
	TestInterval:      DefaultTestInterval,
	ScanInterval:      board.DefaultScanInterval,
	AliveTimeout:      DefaultAliveTimeout,
	PublishInterval:   DefaultPublishInterval,
}

var configFile string

func init() {
	if val := os.Getenv("US1_SENSORS"); val != "" {
		defaultConfig.Sensors = splitNames(val)
	}
	configFile = os.Getenv("US1_CONFIG")
}

type namesValue struct {
	names *[]string
}

func (v namesValue) String() string {
	if v.names == nil {
		return ""
	}
	return strings.Join(*v.names, ",")
}

func (v namesValue) Set(s string) error {
	*v.names = splitNames(s)
	return nil
}

func splitNames(s string) (names []string) {
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "us1-config", configFile, "YAML file of mrm-us1 sensors and timings.")
	flag.Var(namesValue{&defaultConfig.Sensors}, "us1-sensors", "Comma separated names of mrm-us1 sensors in slot order.")
	flag.DurationVar(&defaultConfig.PublishInterval, "us1-publish", defaultConfig.PublishInterval, "Interval publishing readings, 0 to disable.")
	flag.BoolVar(&defaultConfig.SelfTest, "us1-self-test", defaultConfig.SelfTest, "Print readings of alive sensors periodically.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults, loading the file
// specified by -us1-config if any.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	conf.Sensors = append([]string(nil), defaultConfig.Sensors...)
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	return &conf, conf.Validate()
}

// LoadFile overrides the config with values in a YAML file.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.InactivityAllowed == 0 {
		c.InactivityAllowed = DefaultInactivityAllowed
	}
	if c.ConfirmWindow == 0 {
		c.ConfirmWindow = DefaultConfirmWindow
	}
	if c.StartWait == 0 {
		c.StartWait = DefaultStartWait
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StartAttempts == 0 {
		c.StartAttempts = DefaultStartAttempts
	}
	if c.TestInterval == 0 {
		c.TestInterval = DefaultTestInterval
	}
	if c.ScanInterval == 0 {
		c.ScanInterval = board.DefaultScanInterval
	}
}

// AddressTable returns the default table with the overrides applied.
func (c *Config) AddressTable() AddressTable {
	table := DefaultAddressTable
	copy(table[:], c.Addresses)
	return table
}

// Validate checks the config.
func (c *Config) Validate() error {
	if len(c.Sensors) == 0 {
		return errors.New("at least one sensor is required")
	}
	if len(c.Sensors) > MaxDevices {
		return fmt.Errorf("%w: %d sensors, at most %d", ErrTooManyDevices, len(c.Sensors), MaxDevices)
	}
	if len(c.Addresses) > MaxDevices {
		return fmt.Errorf("addresses: %w: %d", ErrSlotIndexOutOfRange, len(c.Addresses)-1)
	}
	table := c.AddressTable()
	if err := table.Validate(); err != nil {
		return fmt.Errorf("addresses: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"inactivity_allowed": c.InactivityAllowed,
		"confirm_window":     c.ConfirmWindow,
		"start_wait":         c.StartWait,
		"poll_interval":      c.PollInterval,
		"test_interval":      c.TestInterval,
		"scan_interval":      c.ScanInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.AliveTimeout < 0 || c.PublishInterval < 0 {
		return errors.New("alive_timeout and publish_interval must not be negative")
	}
	if c.StartAttempts <= 0 {
		return errors.New("start_attempts must be positive")
	}
	if c.ConfirmWindow > c.InactivityAllowed {
		return errors.New("confirm_window must not exceed inactivity_allowed")
	}
	return nil
}

// NewBoard creates the Board and registers the sensors.
func (c *Config) NewBoard(transport can.Sender) (*Board, error) {
	b := NewBoard(transport)
	b.Addresses = c.AddressTable()
	b.InactivityAllowed = c.InactivityAllowed
	b.ConfirmWindow = c.ConfirmWindow
	b.StartWait = c.StartWait
	b.PollInterval = c.PollInterval
	b.StartAttempts = c.StartAttempts
	b.TestInterval = c.TestInterval
	b.ScanInterval = c.ScanInterval
	b.AliveTimeout = c.AliveTimeout
	for _, name := range c.Sensors {
		if _, err := b.Add(name); err != nil {
			return nil, err
		}
	}
	return b, nil
}
