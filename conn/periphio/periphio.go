// Package periphio adapts periph.io connection types to the interfaces the
// ledcode drivers consume, so the same driver code runs against /dev/i2c
// buses and sysfs/gpiod pins on Linux hosts as well as on microcontrollers.
package periphio

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers"

	"ledcode-go/drivers/is31fl3235a"
)

// Compile-time checks.
var (
	_ drivers.I2C             = I2C{}
	_ is31fl3235a.ShutdownPin = Pin{}
)

// I2C exposes a periph i2c.Bus as a drivers.I2C. The two transaction
// contracts are identical (write w, then read r under a repeated start), so
// the adapter is a direct pass-through.
type I2C struct {
	Bus i2c.Bus
}

func (b I2C) Tx(addr uint16, w, r []byte) error {
	return b.Bus.Tx(addr, w, r)
}

// Pin exposes a periph output pin as a driver shutdown pin.
type Pin struct {
	Out gpio.PinOut
}

func (p Pin) Set(high bool) error {
	return p.Out.Out(gpio.Level(high))
}
