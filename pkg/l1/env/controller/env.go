// Package controller sets up the env of an L1 controller: its
// identity and the registrars connecting it to L2.
package controller

import (
	"flag"
	"fmt"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1"
	"github.com/robotalks/us1.go/pkg/l1/comm"
	"github.com/robotalks/us1.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/us1.go/pkg/l1/comm/websocket"
)

// Config provides common options to setup an env for L1 controllers.
type Config struct {
	Info l1.ControllerInfo

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	// Empty runs the controller without registering.
	MQTTBrokerURL string
	// WebsocketAddr is the listening address accepting L1 connections
	// directly. Empty disables it.
	WebsocketAddr string
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/robo/",
}

func init() {
	if val := os.Getenv("ROBO_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("ROBO_WS_ADDR"); val != "" {
		defaultConfig.WebsocketAddr = val
	}
	if val := os.Getenv("ROBO_CONTROLLER_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	} else {
		defaultConfig.Info.Ref.ID = MachineID()
	}
	if val := os.Getenv("ROBO_CONTROLLER"); val != "" {
		if err := (refValue{&defaultConfig.Info.Ref}).Set(val); err != nil {
			glog.Warningf("ROBO_CONTROLLER: %v", err)
		}
	}
}

// refValue sets both type and id of a ControllerRef from type/id.
type refValue struct {
	ref *l1.ControllerRef
}

func (v refValue) String() string {
	if v.ref == nil {
		return ""
	}
	return v.ref.Name()
}

func (v refValue) Set(s string) error {
	ref, err := l1.ParseControllerRef(s)
	if err != nil {
		return err
	}
	*v.ref = ref
	return nil
}

// MachineID retrieves the unique ID identifying the machine,
// or the hostname if it's not available.
func MachineID() string {
	id, err := machineid.ProtectedID("robo")
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return ""
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID")
	flag.Var(refValue{&defaultConfig.Info.Ref}, "controller", "Controller as type/id, overrides -type and -id")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Listening address of websocket connections, empty to disable")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// SetControllerType should be called in init with basic info about the controller.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// Env is the env for L1 controllers.
type Env struct {
	Config       *Config
	RegistryURLs []string
	Registrar    *comm.RegistrarMux
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("invalid controller %q: type and id must be specified", c.Info.Ref.Name())
	}
	env := &Env{
		Config:    c,
		Registrar: &comm.RegistrarMux{},
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %w", err)
		}
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, c.MQTTBrokerURL)
	}
	if c.WebsocketAddr != "" {
		env.Registrar.Add(websocket.NewServer(c.WebsocketAddr))
	}
	if len(env.Registrar.Registrars) == 0 {
		glog.Warningf("%s: no registrar, commands are not received", c.Info.Ref.Name())
	}
	return env, nil
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(&comm.UnsupportedCommands{})
}
