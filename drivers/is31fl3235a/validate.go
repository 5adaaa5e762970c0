package is31fl3235a

import "errors"

// Errors returned by the driver (TinyGo-safe; no fmt).
var (
	// ErrChannelRange reports a channel index or window outside [0, Channels).
	ErrChannelRange = errors.New("is31fl3235a: channel out of range")
	// ErrScaleRange reports a current-scale selector beyond ScaleQuarter.
	ErrScaleRange = errors.New("is31fl3235a: invalid current scale")
	// ErrPercentRange reports a brightness percentage outside [0, 100].
	ErrPercentRange = errors.New("is31fl3235a: percent out of range")
	// ErrNoShutdownPin means hardware shutdown was requested but no SDB pin
	// was supplied in the Config.
	ErrNoShutdownPin = errors.New("is31fl3235a: no shutdown pin configured")
	// ErrNotReady means Configure has not completed successfully.
	ErrNotReady = errors.New("is31fl3235a: device not initialized")
)

func checkChannel(ch int) error {
	if ch < 0 || ch >= Channels {
		return ErrChannelRange
	}
	return nil
}

// checkWindow validates a consecutive channel window [start, start+count).
// An empty window is rejected; nothing useful can be staged with it.
func checkWindow(start, count int) error {
	if start < 0 || start >= Channels || count < 1 || start+count > Channels {
		return ErrChannelRange
	}
	return nil
}
