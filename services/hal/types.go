// services/hal/types.go
package hal

import (
	"tinygo.org/x/drivers"

	"ledcode-go/drivers/is31fl3235a"
	"ledcode-go/types"
)

// CapInfo describes one capability's retained info document.
type CapInfo struct {
	Kind types.Kind
	Info types.Info
}

// Adaptor owns a concrete device/driver and exposes generic hooks.
// Adaptors must NOT touch the bus or spawn goroutines.
type Adaptor interface {
	ID() string
	// Static capability descriptions (published as retained).
	Capabilities() []CapInfo
	// Control dispatches a driver-specific method.
	// Return (nil, ErrUnsupported) if not implemented for a method/kind.
	Control(kind types.Kind, method string, payload any) (result any, err error)
}

// ErrUnsupported for adaptor Control pass-through.
var ErrUnsupported = errUnsupported{}

type errUnsupported struct{}

func (errUnsupported) Error() string { return "unsupported" }

// I2CBusFactory injects configured I²C instances by id.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// PinFactory supplies shutdown-capable output pins by the configured
// number scheme.
type PinFactory interface {
	ByNumber(n int) (is31fl3235a.ShutdownPin, bool)
}
