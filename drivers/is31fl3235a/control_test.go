package is31fl3235a

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestSetCurrentScale(t *testing.T) {
	d, bus := newTestDevice(t, Config{})

	// Prior control byte after init is enable=1, scale=1x (0x01). Selecting
	// 1/4x must yield 0x07: enable preserved, D2:D1 = 11b.
	if err := d.SetCurrentScale(5, ScaleQuarter); err != nil {
		t.Fatalf("SetCurrentScale: %v", err)
	}
	if bus.calls != 2 {
		t.Fatalf("SetCurrentScale issued %d calls, want 2", bus.calls)
	}
	wantWrite(t, bus.writes[0], 0x2A+5, 0x07)
	wantWrite(t, bus.writes[1], 0x25, 0x00)
	if _, ctrl, _ := d.Channel(5); ctrl != 0x07 {
		t.Fatalf("cache ctrl[5] = %#x, want 0x07", ctrl)
	}

	// Round-trip every scale; enable bit must stay set throughout.
	for _, s := range []CurrentScale{Scale1x, ScaleHalf, ScaleThird, ScaleQuarter} {
		if err := d.SetCurrentScale(5, s); err != nil {
			t.Fatalf("SetCurrentScale(%d): %v", s, err)
		}
		got, err := d.ChannelScale(5)
		if err != nil {
			t.Fatalf("ChannelScale: %v", err)
		}
		if got != s {
			t.Fatalf("scale round-trip = %d, want %d", got, s)
		}
		if on, _ := d.ChannelEnabled(5); !on {
			t.Fatalf("enable bit lost while setting scale %d", s)
		}
	}
}

func TestSetCurrentScaleValidation(t *testing.T) {
	d, bus := newTestDevice(t, Config{})
	if err := d.SetCurrentScale(28, Scale1x); !errors.Is(err, ErrChannelRange) {
		t.Fatalf("channel 28 = %v, want ErrChannelRange", err)
	}
	if err := d.SetCurrentScale(0, ScaleQuarter+1); !errors.Is(err, ErrScaleRange) {
		t.Fatalf("scale 4 = %v, want ErrScaleRange", err)
	}
	if bus.calls != 0 {
		t.Fatalf("rejected calls touched the bus: %d calls", bus.calls)
	}
}

func TestEnableTogglePreservesScale(t *testing.T) {
	d, bus := newTestDevice(t, Config{})
	if err := d.SetCurrentScale(2, ScaleThird); err != nil {
		t.Fatalf("seed scale: %v", err)
	}

	bus.reset()
	if err := d.SetChannelEnable(2, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	// scale=1/3x (10b) with enable cleared: 0x04.
	wantWrite(t, bus.writes[0], 0x2A+2, 0x04)
	if on, _ := d.ChannelEnabled(2); on {
		t.Fatal("channel still enabled after disable")
	}
	if s, _ := d.ChannelScale(2); s != ScaleThird {
		t.Fatalf("scale = %d after disable, want ScaleThird", s)
	}

	if err := d.SetChannelEnable(2, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if _, ctrl, _ := d.Channel(2); ctrl != 0x05 {
		t.Fatalf("cache ctrl[2] = %#x, want 0x05", ctrl)
	}
}

// Random interleavings of enable toggles and scale selects: the two fields
// must never disturb each other and reserved bits must stay clear.
func TestEnableScaleFieldIndependence(t *testing.T) {
	d, _ := newTestDevice(t, Config{})
	rng := rand.New(rand.NewSource(1))

	on := true
	scale := Scale1x
	for i := 0; i < 500; i++ {
		ch := rng.Intn(Channels)
		if rng.Intn(2) == 0 {
			on = rng.Intn(2) == 0
			if err := d.SetChannelEnableNoUpdate(ch, on); err != nil {
				t.Fatalf("enable: %v", err)
			}
		} else {
			scale = CurrentScale(rng.Intn(4))
			if err := d.SetCurrentScaleNoUpdate(ch, scale); err != nil {
				t.Fatalf("scale: %v", err)
			}
		}
		_, ctrl, _ := d.Channel(ch)
		if ctrl&ctrlReservedMask != 0 {
			t.Fatalf("reserved bits set: ctrl[%d] = %#x", ch, ctrl)
		}
	}
	// Mirror never drifts from the decoded fields.
	_, ctrl := d.Snapshot()
	for ch := 0; ch < Channels; ch++ {
		gotOn, _ := d.ChannelEnabled(ch)
		gotScale, _ := d.ChannelScale(ch)
		want := encodeScale(0, gotScale)
		if gotOn {
			want |= ctrlEnableBit
		}
		if ctrl[ch] != want {
			t.Fatalf("ctrl[%d] = %#x, decoded fields say %#x", ch, ctrl[ch], want)
		}
	}
}

func TestSetChannelsEnable(t *testing.T) {
	d, bus := newTestDevice(t, Config{})
	if err := d.SetCurrentScaleNoUpdate(11, ScaleHalf); err != nil {
		t.Fatalf("seed scale: %v", err)
	}

	bus.reset()
	if err := d.SetChannelsEnable(10, []bool{false, true, false}); err != nil {
		t.Fatalf("SetChannelsEnable: %v", err)
	}
	if bus.calls != 2 {
		t.Fatalf("SetChannelsEnable issued %d calls, want 2", bus.calls)
	}
	// ch10: enable cleared from 0x01 -> 0x00; ch11: keeps 1/2x scale ->
	// 0x03; ch12: cleared -> 0x00.
	wantWrite(t, bus.writes[0], 0x2A+10, 0x00, 0x03, 0x00)
	wantWrite(t, bus.writes[1], 0x25, 0x00)
	if s, _ := d.ChannelScale(11); s != ScaleHalf {
		t.Fatalf("scale[11] = %d after enable burst, want ScaleHalf", s)
	}
}

func TestSetChannelsEnableWindowValidation(t *testing.T) {
	d, bus := newTestDevice(t, Config{})
	if err := d.SetChannelsEnable(26, make([]bool, 5)); !errors.Is(err, ErrChannelRange) {
		t.Fatalf("window 26+5 = %v, want ErrChannelRange", err)
	}
	if bus.calls != 0 {
		t.Fatalf("rejected window touched the bus: %d calls", bus.calls)
	}
}

func TestControlWriteFailureLeavesCache(t *testing.T) {
	d, bus := newTestDevice(t, Config{})
	bus.reset()
	bus.failReg = 0x2A + 4
	if err := d.SetChannelEnable(4, false); !errors.Is(err, errBus) {
		t.Fatalf("SetChannelEnable on failing bus = %v, want bus fault", err)
	}
	if _, ctrl, _ := d.Channel(4); ctrl != 0x01 {
		t.Fatalf("cache ctrl[4] = %#x after failed write, want 0x01", ctrl)
	}
}

func TestEnableActiveLowPolarity(t *testing.T) {
	bus := newFakeBus()
	d := New(bus, Config{EnableActiveLow: true})
	d.sleep = func(time.Duration) {}
	if err := d.Configure(); err != nil {
		t.Fatalf("configure: %v", err)
	}
	// With inverted polarity "enabled" means D0 clear.
	if _, ctrl, _ := d.Channel(0); ctrl != 0x00 {
		t.Fatalf("init ctrl[0] = %#x with active-low enable, want 0x00", ctrl)
	}
	if on, _ := d.ChannelEnabled(0); !on {
		t.Fatal("channel not reported enabled after init")
	}
	bus.reset()
	if err := d.SetChannelEnable(0, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	wantWrite(t, bus.writes[0], 0x2A, 0x01)
}
