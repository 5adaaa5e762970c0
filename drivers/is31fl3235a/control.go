package is31fl3235a

// Control register mutations: per-channel output enable and current scale.
// Both fields live in one write-only byte, so every change is a
// read-modify-write against the cached value that preserves the other field.

// SetCurrentScale selects a channel's output current fraction and latches
// it. The enable bit keeps its prior state.
func (d *Device) SetCurrentScale(ch int, scale CurrentScale) error {
	return d.setCurrentScale(ch, scale, true)
}

// SetCurrentScaleNoUpdate is SetCurrentScale without the trailing latch.
func (d *Device) SetCurrentScaleNoUpdate(ch int, scale CurrentScale) error {
	return d.setCurrentScale(ch, scale, false)
}

func (d *Device) setCurrentScale(ch int, scale CurrentScale, update bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if scale > ScaleQuarter {
		return ErrScaleRange
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	v := encodeScale(d.ctrl[ch], scale)
	if err := d.writeReg(ctrlReg(ch), v); err != nil {
		return err
	}
	d.ctrl[ch] = v
	if !update {
		return nil
	}
	return d.writeReg(regUpdate, updateTrigger)
}

// SetChannelEnable turns a channel's output on or off and latches it. The
// current-scale field keeps its prior state. A disabled channel produces no
// output regardless of its PWM value.
func (d *Device) SetChannelEnable(ch int, enable bool) error {
	return d.setChannelEnable(ch, enable, true)
}

// SetChannelEnableNoUpdate is SetChannelEnable without the trailing latch.
func (d *Device) SetChannelEnableNoUpdate(ch int, enable bool) error {
	return d.setChannelEnable(ch, enable, false)
}

func (d *Device) setChannelEnable(ch int, enable, update bool) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	v := d.encodeEnable(d.ctrl[ch], enable)
	if err := d.writeReg(ctrlReg(ch), v); err != nil {
		return err
	}
	d.ctrl[ch] = v
	if !update {
		return nil
	}
	return d.writeReg(regUpdate, updateTrigger)
}

// SetChannelsEnable sets the output-enable state for a consecutive channel
// window in one burst, preserving each channel's current scale, and latches
// the window so all channels change together.
func (d *Device) SetChannelsEnable(start int, enables []bool) error {
	return d.setChannelsEnable(start, enables, true)
}

// SetChannelsEnableNoUpdate is SetChannelsEnable without the latch.
func (d *Device) SetChannelsEnableNoUpdate(start int, enables []bool) error {
	return d.setChannelsEnable(start, enables, false)
}

func (d *Device) setChannelsEnable(start int, enables []bool, update bool) error {
	if err := checkWindow(start, len(enables)); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return ErrNotReady
	}
	var buf [Channels]byte
	for i, on := range enables {
		buf[i] = d.encodeEnable(d.ctrl[start+i], on)
	}
	n := len(enables)
	if err := d.writeBurst(ctrlReg(start), buf[:n]); err != nil {
		return err
	}
	copy(d.ctrl[start:start+n], buf[:n])
	if !update {
		return nil
	}
	return d.writeReg(regUpdate, updateTrigger)
}
