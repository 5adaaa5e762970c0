// Package is31fl3235a implements a driver for the ISSI/Lumissil IS31FL3235A
// 28-channel constant-current LED controller on I2C.
//
// The part double-buffers its PWM and per-channel control registers: writes
// land in staging registers and only become visible on the outputs when the
// update register is written. Every mutating method comes in two flavours,
// one that latches immediately and a *NoUpdate one that leaves the change
// staged so several channels can be made visible in a single Update().
//
// PWM and control registers cannot be read back, so the driver keeps a
// per-channel mirror of the last successfully written values and performs
// all read-modify-write operations against that mirror. A device instance
// is safe for concurrent use; each logical operation (including its
// trailing update) holds the instance lock.
package is31fl3235a

import (
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// CurrentScale selects the per-channel output current as a fraction of the
// hardware-configured IMAX.
type CurrentScale uint8

const (
	Scale1x      CurrentScale = 0 // 100% of IMAX
	ScaleHalf    CurrentScale = 1 // 50%
	ScaleThird   CurrentScale = 2 // 33%
	ScaleQuarter CurrentScale = 3 // 25%
)

// Config describes one IS31FL3235A instance. All fields are optional.
type Config struct {
	// Address defaults to AddressGND (0x3C).
	Address uint16
	// PWMFreq22kHz selects the 22 kHz output frequency instead of 3 kHz.
	PWMFreq22kHz bool
	// ShutdownPin drives SDB if the line is wired; nil disables hardware
	// shutdown support.
	ShutdownPin ShutdownPin
	// EnableActiveLow flips the assumed polarity of the control-register
	// output-enable bit (D0). The default follows the register map: D0=1
	// lets the output follow its PWM value. The polarity has not been
	// validated against hardware; set this if a board proves otherwise.
	EnableActiveLow bool
}

// Device represents an IS31FL3235A instance on an I2C bus.
type Device struct {
	i2c       drivers.I2C
	addr      uint16
	sdb       ShutdownPin
	freq22k   bool
	enableLow bool

	// sleep is swappable so tests run without real delays.
	sleep func(time.Duration)

	mu sync.Mutex
	// Mirror of the staged register values; written only after the
	// corresponding bus write succeeded.
	pwm  [Channels]byte
	ctrl [Channels]byte

	swShutdown  bool
	hwShutdown  bool
	initialized bool

	// Fixed buffer for register writes; sized for the largest burst
	// (sub-address plus one byte per channel).
	w [1 + Channels]byte
}

// New constructs a Device. This only creates the object; it does not touch
// the hardware. Call Configure before any other method.
func New(bus drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressGND
	}
	return &Device{
		i2c:       bus,
		addr:      addr,
		sdb:       cfg.ShutdownPin,
		freq22k:   cfg.PWMFreq22kHz,
		enableLow: cfg.EnableActiveLow,
		sleep:     time.Sleep,
	}
}

// Configure brings the chip to a known state: SDB released (if wired),
// reset, woken from software shutdown, PWM frequency applied, every channel
// staged to zero duty and enabled at 1x current, then one update to latch
// it all. Until Configure succeeds every other method returns ErrNotReady.
func (d *Device) Configure() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sdb != nil {
		if err := d.sdb.Set(true); err != nil {
			return err
		}
		d.hwShutdown = false
		d.sleep(startupDelay)
	}

	if err := d.writeReg(regReset, resetTrigger); err != nil {
		return err
	}
	d.sleep(resetDelay)

	if err := d.writeReg(regShutdown, shutdownNormal); err != nil {
		return err
	}
	d.swShutdown = false

	freq := byte(freq3kHz)
	if d.freq22k {
		freq = freq22kHz
	}
	if err := d.writeReg(regFreq, freq); err != nil {
		return err
	}

	ctrl := d.encodeEnable(0, true) // enabled, 1x scale
	for ch := 0; ch < Channels; ch++ {
		if err := d.writeReg(pwmReg(ch), 0); err != nil {
			return err
		}
		d.pwm[ch] = 0
		if err := d.writeReg(ctrlReg(ch), ctrl); err != nil {
			return err
		}
		d.ctrl[ch] = ctrl
	}

	if err := d.writeReg(regUpdate, updateTrigger); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

// Update latches all staged PWM and control values into the active
// registers. The chip applies them simultaneously, so channels staged with
// the *NoUpdate methods change appearance together with no partial state
// visible. Retrying after a failure is the caller's business; a failed
// update leaves everything staged exactly as it was.
func (d *Device) Update() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	return d.writeReg(regUpdate, updateTrigger)
}

// Initialized reports whether Configure has completed successfully.
func (d *Device) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Control byte field helpers. All construction goes through these so the
// reserved bits (D7:D3) can never be set.

func (d *Device) encodeEnable(cur byte, on bool) byte {
	set := on
	if d.enableLow {
		set = !set
	}
	if set {
		return cur | ctrlEnableBit
	}
	return cur &^ ctrlEnableBit
}

func (d *Device) decodeEnable(v byte) bool {
	set := v&ctrlEnableBit != 0
	if d.enableLow {
		set = !set
	}
	return set
}

func encodeScale(cur byte, s CurrentScale) byte {
	return (cur &^ ctrlScaleMask) | byte(s)<<ctrlScaleShift
}

func decodeScale(v byte) CurrentScale {
	return CurrentScale((v & ctrlScaleMask) >> ctrlScaleShift)
}
