// Package tlmt sends anonymous usage events.
package tlmt

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/host"
)

// Event is a named usage event
type Event struct {
	Name       string
	Properties map[string]any
}

// NewEvent creates an event stamped with the platform it was produced on
func NewEvent(name string, props map[string]any) Event {
	ev := Event{
		Name:       name,
		Properties: make(map[string]any, len(props)+2),
	}

	for k, v := range props {
		ev.Properties[k] = v
	}

	ev.Properties["os"] = runtime.GOOS
	ev.Properties["arch"] = runtime.GOARCH

	return ev
}

// Telemetry delivers events to a backend
type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

var (
	machineOnce sync.Once
	machineID   string
)

// MachineID identifies the installation without exposing host details.
// It falls back to a random id when the host id cannot be read.
func MachineID() string {
	machineOnce.Do(func() {
		id, err := host.HostID()
		if err != nil || id == "" {
			machineID = uuid.NewString()
			return
		}

		machineID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
	})

	return machineID
}
