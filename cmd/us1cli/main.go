package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/us1.go/pkg/can/slcan"
	"github.com/robotalks/us1.go/pkg/cli/sh"
	"github.com/robotalks/us1.go/pkg/us1"

	_ "github.com/robotalks/us1.go/pkg/cli/cmds/us1"
)

func init() {
	slcan.SetupFlags()
	us1.SetupFlags()
	sh.SetupFlags()
}

func main() {
	flag.Parse()

	conf, err := us1.NewConfig()
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
	bus.Handler = board

	ctx, cancel := context.WithCancel(context.Background())
	go bus.Run(ctx)

	err = sh.New(board).Exec(flag.Args()...)
	cancel()
	bus.Close()
	if err != nil {
		glog.Fatal(err)
	}
}
