package types

// ------------------------
// LED array (multi-channel constant-current driver)
// ------------------------

type LEDArrayInfo struct {
	Bus      string `json:"bus"`  // "i2c0", ...
	Addr     uint16 `json:"addr"` // I2C address
	Channels int    `json:"channels"`
	Freq     string `json:"freq"` // PWM frequency, "3kHz" or "22kHz"
}

// ChannelState mirrors one channel of the driver's register cache.
type ChannelState struct {
	Channel int    `json:"channel"`
	PWM     uint8  `json:"pwm"`
	Enabled bool   `json:"enabled"`
	Scale   string `json:"scale"` // "1", "1/2", "1/3", "1/4"
}

// ArraySnapshot is the full cache view returned by the "snapshot" control.
type ArraySnapshot struct {
	Channels []ChannelState `json:"channels"`
	SWShut   bool           `json:"sw_shutdown"`
	HWShut   bool           `json:"hw_shutdown"`
}
