package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/us1.go/pkg/can/slcan"
	"github.com/robotalks/us1.go/pkg/cli/sh"
	"github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/l1"
	env "github.com/robotalks/us1.go/pkg/l1/env/controller"
	"github.com/robotalks/us1.go/pkg/metrics"
	"github.com/robotalks/us1.go/pkg/us1"

	_ "github.com/robotalks/us1.go/pkg/cli/cmds/us1"
)

var withShell bool

func init() {
	env.SetControllerType("us1", l1.ControllerMeta{Description: "mrm-us1 Ultrasonic Sensors"})
	env.SetupFlags()
	slcan.SetupFlags()
	us1.SetupFlags()
	metrics.SetupFlags()
	sh.SetupFlags()
	flag.BoolVar(&withShell, "shell", withShell, "Run the interactive shell.")
}

func main() {
	flag.Parse()

	conf, err := us1.NewConfig()
	if err != nil {
		glog.Fatal(err)
	}
	envConf := env.NewConfig()
	envConf.Info.Meta.Devices = conf.Sensors
	e, err := envConf.NewEnv()
	if err != nil {
		glog.Fatal(err)
	}

	bus, err := slcan.NewConfig().Open()
	if err != nil {
		glog.Fatal(err)
	}
	board, err := conf.NewBoard(bus)
	if err != nil {
		glog.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	prom := metrics.NewProm(reg)
	board.Observer, board.Reporter = prom, prom
	bus.Handler = prom.FrameHandler(board)

	loop := framework.NewLoop().Add(e, bus, conf.NewController(board, e.Registrar))
	if srv := metrics.NewConfig().NewServer(reg); srv != nil {
		loop.AddRunnable(srv)
	}
	if withShell {
		loop.AddRunnable(sh.New(board))
	}
	loop.RunOrFail(bus)
}
