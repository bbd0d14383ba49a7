// Package l1 defines how an L1 controller (a hardware driver daemon)
// is registered and receives commands from L2.
package l1

import (
	"context"
	"fmt"
	"strings"

	fx "github.com/robotalks/us1.go/pkg/framework"
)

// Registrar registers an L1 controller to a registry.
// Received commands are posted into the loop as CommandMsg.
type Registrar interface {
	// SendEvent sends an event to L2.
	SendEvent(context.Context, fx.Message) error
}

// Command represents a received command to be processed.
type Command interface {
	Msg() fx.Message
	// Done replies the command.
	Done(fx.Message) error
}

// CommandMsg wraps a Command as a Message.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// ControllerRef is a reference to an L1 controller.
type ControllerRef struct {
	// Type is controller type, e.g. us1.
	Type string
	// ID is unique ID of the device.
	ID string
}

// ParseControllerRef parses a ref in the form of type/id.
func ParseControllerRef(s string) (ControllerRef, error) {
	items := strings.SplitN(s, "/", 2)
	if len(items) != 2 {
		return ControllerRef{}, fmt.Errorf("invalid controller ref %q, expect type/id", s)
	}
	ref := ControllerRef{Type: items[0], ID: items[1]}
	if !ref.IsValid() {
		return ref, fmt.Errorf("invalid controller ref %q, expect type/id", s)
	}
	return ref, nil
}

// Name retrieves the name from ref.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates ControllerRef is valid.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != "" && !strings.ContainsAny(r.Type+r.ID, "/+#")
}

// ControllerMeta is published when the controller is online.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	// Devices lists the names of the devices managed by the controller.
	Devices []string `json:"devices,omitempty"`
}

// ControllerInfo provides information of an L1 controller.
type ControllerInfo struct {
	Ref  ControllerRef
	Meta ControllerMeta
}
