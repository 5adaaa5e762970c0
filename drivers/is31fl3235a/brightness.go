package is31fl3235a

// Brightness (PWM duty) mutations. The canonical scale is the raw register
// scale 0..255; the percent entry points are stateless conversions layered
// on the same primitive, not a second path to the cache.

// SetBrightness stages a PWM duty for one channel and latches it.
func (d *Device) SetBrightness(ch int, value byte) error {
	return d.setBrightness(ch, value, true)
}

// SetBrightnessNoUpdate stages a PWM duty without latching. The change has
// no visible effect until Update.
func (d *Device) SetBrightnessNoUpdate(ch int, value byte) error {
	return d.setBrightness(ch, value, false)
}

// On sets a channel to full brightness.
func (d *Device) On(ch int) error { return d.setBrightness(ch, 0xFF, true) }

// Off sets a channel to zero brightness. For channels that stay dark for
// long periods, disabling the output (SetChannelEnable) saves more power.
func (d *Device) Off(ch int) error { return d.setBrightness(ch, 0x00, true) }

func (d *Device) setBrightness(ch int, value byte, update bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	if err := d.writeReg(pwmReg(ch), value); err != nil {
		return err
	}
	d.pwm[ch] = value
	if !update {
		return nil
	}
	return d.writeReg(regUpdate, updateTrigger)
}

// WriteChannels stages PWM duties for a consecutive channel window in a
// single burst transaction and latches them, so the whole window changes
// appearance at once.
func (d *Device) WriteChannels(start int, values []byte) error {
	return d.writeChannels(start, values, true)
}

// WriteChannelsNoUpdate is WriteChannels without the trailing latch.
func (d *Device) WriteChannelsNoUpdate(start int, values []byte) error {
	return d.writeChannels(start, values, false)
}

func (d *Device) writeChannels(start int, values []byte, update bool) error {
	if err := checkWindow(start, len(values)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	if err := d.writeBurst(pwmReg(start), values); err != nil {
		// All-or-nothing: the transport does not report how much of a
		// burst reached the chip, so none of the mirror is touched.
		return err
	}
	copy(d.pwm[start:start+len(values)], values)
	if !update {
		return nil
	}
	return d.writeReg(regUpdate, updateTrigger)
}

// PercentToPWM converts a brightness percentage 0..100 to the raw 0..255
// duty scale, rounding to nearest.
func PercentToPWM(pct int) byte {
	return byte((pct*255 + 50) / 100)
}

// SetBrightnessPercent sets a channel from a 0..100 percentage and latches
// it. Values outside the range are rejected, not clamped.
func (d *Device) SetBrightnessPercent(ch, pct int) error {
	if pct < 0 || pct > 100 {
		return ErrPercentRange
	}
	return d.setBrightness(ch, PercentToPWM(pct), true)
}

// SetBrightnessPercentNoUpdate is SetBrightnessPercent without the latch.
func (d *Device) SetBrightnessPercentNoUpdate(ch, pct int) error {
	if pct < 0 || pct > 100 {
		return ErrPercentRange
	}
	return d.setBrightness(ch, PercentToPWM(pct), false)
}
