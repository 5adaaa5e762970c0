// services/hal/registry.go
package hal

import (
	"fmt"
	"sync"
)

// BuildInput is provided to a device builder to construct an Adaptor.
type BuildInput struct {
	Buses    I2CBusFactory
	Pins     PinFactory
	DeviceID string
	Type     string
	Params   any
	// Minimal BusRef shape; mirrors the config without pulling it in here.
	BusRef struct {
		Type string
		ID   string
	}
}

// Builder constructs an Adaptor from config and platform factories.
type Builder interface {
	Build(in BuildInput) (Adaptor, error)
}

var (
	muBuilders sync.RWMutex
	builders   = map[string]Builder{}
)

// RegisterBuilder installs a builder for a given device type string.
// It panics on duplicate registration to catch mistakes at start-up.
func RegisterBuilder(deviceType string, b Builder) {
	muBuilders.Lock()
	defer muBuilders.Unlock()
	if deviceType == "" {
		panic("hal: empty device type for builder")
	}
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("hal: builder already registered for type %q", deviceType))
	}
	builders[deviceType] = b
}

// findBuilder looks up a registered builder by type.
func findBuilder(deviceType string) (Builder, bool) {
	muBuilders.RLock()
	defer muBuilders.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
