// Package is31fl3235a provides constants for register addresses and bitfields
// used in the operation of the ISSI/Lumissil IS31FL3235A 28-channel
// constant-current LED controller.
package is31fl3235a

import "time"

const (
	// Channels is the number of constant-current outputs (OUT1..OUT28).
	Channels = 28

	// 7-bit I2C addresses selected by the AD pin strapping.
	AddressGND = 0x3C
	AddressVCC = 0x3D
	AddressSCL = 0x3E
	AddressSDA = 0x3F

	// --- Register sub-addresses (8-bit byte registers) ---

	regShutdown = 0x00 // software shutdown control
	regPWMBase  = 0x05 // PWM duty, OUT1..OUT28 at 0x05..0x20, write-only
	regUpdate   = 0x25 // write updateTrigger to latch staged values
	regCtrlBase = 0x2A // per-channel control, OUT1..OUT28 at 0x2A..0x45, write-only
	regFreq     = 0x4B // PWM frequency select
	regReset    = 0x4F // write resetTrigger to reset all registers

	// Shutdown register (0x00) values.
	shutdownMode   = 0x00
	shutdownNormal = 0x01

	// The update and reset registers latch on writing zero.
	updateTrigger = 0x00
	resetTrigger  = 0x00

	// Control register bitfields: D0 output enable, D2:D1 current scale.
	// D7:D3 are reserved and must stay zero.
	ctrlEnableBit    = 0x01
	ctrlScaleShift   = 1
	ctrlScaleMask    = 0x06
	ctrlReservedMask = 0xF8

	// Frequency register (0x4B) values.
	freq3kHz  = 0x00
	freq22kHz = 0x01
)

// Datasheet timings: the part needs a short settle after a reset write and
// after SDB is released from hardware shutdown.
const (
	resetDelay   = time.Millisecond
	startupDelay = time.Millisecond
)

func pwmReg(ch int) byte  { return byte(regPWMBase + ch) }
func ctrlReg(ch int) byte { return byte(regCtrlBase + ch) }
