package hal

// Minimal JSON config structures.

type HALConfig struct {
	Version int      `json:"version"`
	Buses   []BusCfg `json:"buses"`
	Devices []DevCfg `json:"devices"`
}

type BusCfg struct {
	ID     string   `json:"id"`   // "i2c0"
	Type   string   `json:"type"` // "i2c"
	Impl   string   `json:"impl"` // e.g. "periph" (informational)
	Pins   []PinCfg `json:"pins"` // wiring is applied by the platform factory
	Params struct {
		FreqHz int `json:"freq_hz"`
	} `json:"params"`
}

type PinCfg struct {
	Name   string `json:"name"`
	Signal string `json:"signal"`
}

type DevCfg struct {
	ID     string    `json:"id"`   // "ledarray-0"
	Type   string    `json:"type"` // "is31fl3235a"
	BusRef DevBusRef `json:"bus_ref"`
	Params any       `json:"params,omitempty"` // device-specific shape; may be a map or struct
}

type DevBusRef struct{ ID, Type string }

// LEDArrayParams is the DevCfg.Params shape for type "is31fl3235a".
type LEDArrayParams struct {
	Addr        int  `json:"addr,omitempty"`         // default 0x3C (AD to GND)
	Freq22kHz   bool `json:"freq_22khz,omitempty"`   // default 3 kHz
	ShutdownPin *int `json:"shutdown_pin,omitempty"` // SDB line, optional
	ActiveLow   bool `json:"active_low,omitempty"`   // inverted channel enable bits
}
