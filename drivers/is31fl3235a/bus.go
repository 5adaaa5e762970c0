package is31fl3235a

// ShutdownPin drives the SDB line: high for normal operation, low for
// hardware shutdown. The narrow interface keeps the driver portable across
// GPIO stacks (machine.Pin wrappers, periph.io, test fakes).
type ShutdownPin interface {
	Set(high bool) error
}

// I2C byte-register operations. The part's PWM and control registers are
// write-only; the driver never reads registers back and instead mirrors
// written values (see cache.go).

func (d *Device) writeReg(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return d.i2c.Tx(d.addr, d.w[:2], nil)
}

// writeBurst writes len(vals) consecutive registers starting at startReg in
// a single transaction. Channel registers are laid out linearly, so a
// consecutive channel window maps to one burst.
func (d *Device) writeBurst(startReg byte, vals []byte) error {
	d.w[0] = startReg
	n := copy(d.w[1:], vals)
	return d.i2c.Tx(d.addr, d.w[:1+n], nil)
}
