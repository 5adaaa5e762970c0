package is31fl3235a

// Cache accessors. The mirror holds the last values successfully written to
// the staging registers; it is a write-intent record, not a read-back, and
// is presumed (never verified) to match the hardware. A failed write leaves
// its entry untouched, so the mirror always reflects the last value known
// to have reached the chip.

// Channel returns the cached PWM and control bytes for one channel.
func (d *Device) Channel(ch int) (pwm, ctrl byte, err error) {
	if err := checkChannel(ch); err != nil {
		return 0, 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pwm[ch], d.ctrl[ch], nil
}

// ChannelEnabled reports the cached output-enable state of a channel.
func (d *Device) ChannelEnabled(ch int) (bool, error) {
	if err := checkChannel(ch); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decodeEnable(d.ctrl[ch]), nil
}

// ChannelScale returns the cached current scale of a channel.
func (d *Device) ChannelScale(ch int) (CurrentScale, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return decodeScale(d.ctrl[ch]), nil
}

// Snapshot copies the whole mirror in one locked read.
func (d *Device) Snapshot() (pwm, ctrl [Channels]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pwm, d.ctrl
}

// SoftwareShutdown reports whether the chip was last commanded into
// software shutdown.
func (d *Device) SoftwareShutdown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swShutdown
}

// HardwareShutdown reports whether the SDB line was last driven to its
// shutdown level. Always false when no pin is configured.
func (d *Device) HardwareShutdown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hwShutdown
}
