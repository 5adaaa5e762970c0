package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx via WithDevice)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgLEDBoard = `{
  "hal": {
    "version": 1,
    "buses": [
      {"id": "i2c0", "type": "i2c", "impl": "periph"}
    ],
    "devices": [
      {
        "id": "ledarray-0",
        "type": "is31fl3235a",
        "bus_ref": {"ID": "i2c0", "Type": "i2c"},
        "params": {"addr": 60}
      }
    ]
  },
  "bridge": {
    "transport": {"type": "tcp", "tcp": {"addr": "127.0.0.1:9123"}}
  },
  "heartbeat": {
    "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"ledboard": []byte(cfgLEDBoard),
}
