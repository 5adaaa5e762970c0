package is31fl3235a

// Power-state control. The two shutdown mechanisms are independent: either
// may be asserted on its own and both force the outputs off without
// disturbing the staged register values, so waking restores whatever was
// last latched.

// SetSoftwareShutdown enters (on=true) or leaves software shutdown. I2C
// access keeps working in shutdown and register contents are retained; the
// shutdown register is not double-buffered so no update is needed.
func (d *Device) SetSoftwareShutdown(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	v := byte(shutdownNormal)
	if on {
		v = shutdownMode
	}
	if err := d.writeReg(regShutdown, v); err != nil {
		return err
	}
	d.swShutdown = on
	return nil
}

// SetHardwareShutdown drives the SDB line low (on=true) or high. It returns
// ErrNoShutdownPin when the line is not wired. Waking blocks for the
// chip's startup delay before returning, after which register access is
// safe again.
func (d *Device) SetHardwareShutdown(on bool) error {
	if d.sdb == nil {
		return ErrNoShutdownPin
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	if err := d.sdb.Set(!on); err != nil {
		return err
	}
	d.hwShutdown = on
	if !on {
		d.sleep(startupDelay)
	}
	return nil
}
