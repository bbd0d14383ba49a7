package us1

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/us1.go/pkg/cli/sh"
	fx "github.com/robotalks/us1.go/pkg/framework"
	"github.com/robotalks/us1.go/pkg/us1"
)

// SlotInfo is the JSON form of us1.SlotState.
type SlotInfo struct {
	Slot     int    `json:"slot"`
	Name     string `json:"name"`
	Inbound  uint32 `json:"inbound"`
	Outbound uint32 `json:"outbound"`
	Distance uint16 `json:"distance"`
	Updated  int64  `json:"updated,omitempty"`
	Alive    bool   `json:"alive"`
	Fresh    bool   `json:"fresh"`
}

// Reading is the JSON form of a single reading.
type Reading struct {
	Slot     int    `json:"slot"`
	Distance uint16 `json:"distance"`
}

// FormatSlot prints SlotState into friendly string for display.
func FormatSlot(st us1.SlotState, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s %s", st.Slot, st.Name, st.Addresses)
	if st.Updated.IsZero() {
		sb.WriteString(" no reading")
	} else {
		fmt.Fprintf(&sb, " %dmm %s ago", st.Distance, now.Sub(st.Updated).Round(time.Millisecond))
	}
	if !st.Alive {
		sb.WriteString(" (dead)")
	}
	return sb.String()
}

func slotInfo(st us1.SlotState) SlotInfo {
	info := SlotInfo{
		Slot:     st.Slot,
		Name:     st.Name,
		Inbound:  st.Addresses.Inbound,
		Outbound: st.Addresses.Outbound,
		Distance: st.Distance,
		Alive:    st.Alive,
		Fresh:    st.Fresh,
	}
	if !st.Updated.IsZero() {
		info.Updated = st.Updated.UnixNano() / int64(time.Millisecond)
	}
	return info
}

var (
	// SlotsCmd lists the sensors.
	SlotsCmd = ishell.Cmd{
		Name:    "slots",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *us1.Board) {
			now := fx.ClockOrDefault(b.Clock).Time()
			states := b.Slots()
			infos := make([]SlotInfo, 0, len(states))
			lines := make([]string, 0, len(states))
			for _, st := range states {
				infos = append(infos, slotInfo(st))
				lines = append(lines, FormatSlot(st, now))
			}
			sh.Output(c, infos, strings.Join(lines, "\n"))
		}),
	}

	// ReadCmd reads a sensor, starting it if needed.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "SLOT",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *us1.Board) {
			if len(c.Args) != 1 {
				sh.Errorf(c, "usage: read SLOT")
				return
			}
			slot, err := strconv.Atoi(c.Args[0])
			if err != nil {
				sh.Errorf(c, "invalid slot %q", c.Args[0])
				return
			}
			mm, err := b.Reading(slot)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, Reading{Slot: slot, Distance: mm}, strconv.Itoa(int(mm)))
		}),
	}

	// ReadingsCmd prints the last readings of all sensors.
	ReadingsCmd = ishell.Cmd{
		Name:    "readings",
		Aliases: []string{"p"},
		Help:    "",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *us1.Board) {
			var sb strings.Builder
			if err := b.PrintReadings(&sb); err != nil {
				c.Err(err)
				return
			}
			states := b.Slots()
			readings := make([]Reading, len(states))
			for n, st := range states {
				readings[n] = Reading{Slot: st.Slot, Distance: st.Distance}
			}
			sh.Output(c, readings, sb.String())
		}),
	}

	// TestCmd prints the readings of alive sensors.
	TestCmd = ishell.Cmd{
		Name:    "test",
		Aliases: []string{"t"},
		Help:    "",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *us1.Board) {
			var sb strings.Builder
			if err := b.Test(&sb); err != nil {
				c.Err(err)
				return
			}
			c.Print(sb.String())
		}),
	}

	// ErrorCmd shows or clears the last error.
	ErrorCmd = ishell.Cmd{
		Name:    "error",
		Aliases: []string{"err"},
		Help:    "[clear]",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *us1.Board) {
			if len(c.Args) > 0 && c.Args[0] == "clear" {
				b.ErrorClear()
				return
			}
			msg := b.ErrorMessage()
			sh.Output(c, map[string]string{"error": msg}, msg)
		}),
	}

	// StopCmd stops all sensors.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: sh.MustHaveBoard(func(c *ishell.Context, b *us1.Board) {
			if err := b.StopAll(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)

func init() {
	sh.AddCmds(
		&SlotsCmd,
		&ReadCmd,
		&ReadingsCmd,
		&TestCmd,
		&ErrorCmd,
		&StopCmd,
	)
}
