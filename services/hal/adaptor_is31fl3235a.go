// services/hal/adaptor_is31fl3235a.go
package hal

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"

	"ledcode-go/drivers/is31fl3235a"
	"ledcode-go/errcode"
	"ledcode-go/types"
	"ledcode-go/x/mathx"
)

func init() { RegisterBuilder("is31fl3235a", ledArrayBuilder{}) }

type ledArrayBuilder struct{}

func (ledArrayBuilder) Build(in BuildInput) (Adaptor, error) {
	if in.BusRef.Type != "i2c" || in.BusRef.ID == "" {
		return nil, errcode.UnknownBus
	}
	i2c, ok := in.Buses.ByID(in.BusRef.ID)
	if !ok {
		return nil, errcode.UnknownBus
	}

	var p LEDArrayParams
	if err := decodeJSON(in.Params, &p); err != nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "build", err)
	}
	if p.Addr == 0 {
		p.Addr = int(is31fl3235a.AddressGND)
	}

	var sdb is31fl3235a.ShutdownPin
	if p.ShutdownPin != nil {
		pin, ok := in.Pins.ByNumber(*p.ShutdownPin)
		if !ok {
			return nil, errcode.UnknownPin
		}
		sdb = pin
	}

	return NewLEDArrayAdaptor(in.DeviceID, in.BusRef.ID, i2c, sdb, p)
}

type ledArrayAdaptor struct {
	id    string
	busID string
	dev   *is31fl3235a.Device
	addr  uint16
	freq  string
}

// NewLEDArrayAdaptor wires an IS31FL3235A driver instance and initialises
// the chip.
func NewLEDArrayAdaptor(id, busID string, bus drivers.I2C, sdb is31fl3235a.ShutdownPin, p LEDArrayParams) (Adaptor, error) {
	dev := is31fl3235a.New(bus, is31fl3235a.Config{
		Address:         uint16(p.Addr),
		PWMFreq22kHz:    p.Freq22kHz,
		ShutdownPin:     sdb,
		EnableActiveLow: p.ActiveLow,
	})
	if err := dev.Configure(); err != nil {
		return nil, errcode.Wrap(errcode.Transport, "configure", err)
	}
	freq := "3kHz"
	if p.Freq22kHz {
		freq = "22kHz"
	}
	return &ledArrayAdaptor{id: id, busID: busID, dev: dev, addr: uint16(p.Addr), freq: freq}, nil
}

func (a *ledArrayAdaptor) ID() string { return a.id }

func (a *ledArrayAdaptor) Capabilities() []CapInfo {
	return []CapInfo{{
		Kind: types.KindLEDArray,
		Info: types.Info{
			SchemaVersion: 1,
			Driver:        "is31fl3235a",
			Detail: types.LEDArrayInfo{
				Bus:      a.busID,
				Addr:     a.addr,
				Channels: is31fl3235a.Channels,
				Freq:     a.freq,
			},
		},
	}}
}

func (a *ledArrayAdaptor) Control(kind types.Kind, method string, payload any) (any, error) {
	if kind != types.KindLEDArray {
		return nil, ErrUnsupported
	}

	switch method {
	case "set":
		var p struct {
			Channel int      `json:"channel"`
			Value   *float64 `json:"value,omitempty"`   // raw 0..255
			Percent *int     `json:"percent,omitempty"` // 0..100
			Defer   bool     `json:"defer,omitempty"`   // stage only, no latch
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		var err error
		switch {
		case p.Percent != nil:
			if p.Defer {
				err = a.dev.SetBrightnessPercentNoUpdate(p.Channel, *p.Percent)
			} else {
				err = a.dev.SetBrightnessPercent(p.Channel, *p.Percent)
			}
		case p.Value != nil:
			raw := byte(mathx.Clamp(int(*p.Value), 0, 255))
			if p.Defer {
				err = a.dev.SetBrightnessNoUpdate(p.Channel, raw)
			} else {
				err = a.dev.SetBrightness(p.Channel, raw)
			}
		default:
			return nil, errcode.InvalidPayload
		}
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "write":
		var p struct {
			Start  int       `json:"start"`
			Values []float64 `json:"values"`
			Defer  bool      `json:"defer,omitempty"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		vals := make([]byte, len(p.Values))
		for i, v := range p.Values {
			vals[i] = byte(mathx.Clamp(int(v), 0, 255))
		}
		var err error
		if p.Defer {
			err = a.dev.WriteChannelsNoUpdate(p.Start, vals)
		} else {
			err = a.dev.WriteChannels(p.Start, vals)
		}
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "on", "off":
		var p struct {
			Channel int `json:"channel"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		var err error
		if method == "on" {
			err = a.dev.On(p.Channel)
		} else {
			err = a.dev.Off(p.Channel)
		}
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "enable":
		var p struct {
			Channel int  `json:"channel"`
			On      bool `json:"on"`
			Defer   bool `json:"defer,omitempty"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		var err error
		if p.Defer {
			err = a.dev.SetChannelEnableNoUpdate(p.Channel, p.On)
		} else {
			err = a.dev.SetChannelEnable(p.Channel, p.On)
		}
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "enable_window":
		var p struct {
			Start int    `json:"start"`
			On    []bool `json:"on"`
			Defer bool   `json:"defer,omitempty"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		var err error
		if p.Defer {
			err = a.dev.SetChannelsEnableNoUpdate(p.Start, p.On)
		} else {
			err = a.dev.SetChannelsEnable(p.Start, p.On)
		}
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "scale":
		var p struct {
			Channel int    `json:"channel"`
			Scale   string `json:"scale"` // "1","1/2","1/3","1/4"
			Defer   bool   `json:"defer,omitempty"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		s, ok := parseScale(p.Scale)
		if !ok {
			return nil, errcode.Wrap(errcode.OutOfRange, method, fmt.Errorf("bad scale %q", p.Scale))
		}
		var err error
		if p.Defer {
			err = a.dev.SetCurrentScaleNoUpdate(p.Channel, s)
		} else {
			err = a.dev.SetCurrentScale(p.Channel, s)
		}
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "update":
		if err := a.dev.Update(); err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "get":
		var p struct {
			Channel int `json:"channel"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		st, err := a.channelState(p.Channel)
		if err != nil {
			return nil, mapDriverErr(method, err)
		}
		return st, nil

	case "snapshot":
		snap := types.ArraySnapshot{
			SWShut: a.dev.SoftwareShutdown(),
			HWShut: a.dev.HardwareShutdown(),
		}
		for ch := 0; ch < is31fl3235a.Channels; ch++ {
			st, err := a.channelState(ch)
			if err != nil {
				return nil, mapDriverErr(method, err)
			}
			snap.Channels = append(snap.Channels, st)
		}
		return snap, nil

	case "software_shutdown":
		var p struct {
			On bool `json:"on"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		if err := a.dev.SetSoftwareShutdown(p.On); err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	case "hardware_shutdown":
		var p struct {
			On bool `json:"on"`
		}
		if err := decodeJSON(payload, &p); err != nil {
			return nil, errcode.Wrap(errcode.InvalidPayload, method, err)
		}
		if err := a.dev.SetHardwareShutdown(p.On); err != nil {
			return nil, mapDriverErr(method, err)
		}
		return nil, nil

	default:
		return nil, ErrUnsupported
	}
}

func (a *ledArrayAdaptor) channelState(ch int) (types.ChannelState, error) {
	pwm, _, err := a.dev.Channel(ch)
	if err != nil {
		return types.ChannelState{}, err
	}
	enabled, _ := a.dev.ChannelEnabled(ch)
	scale, _ := a.dev.ChannelScale(ch)
	return types.ChannelState{
		Channel: ch,
		PWM:     pwm,
		Enabled: enabled,
		Scale:   scaleString(scale),
	}, nil
}

func parseScale(s string) (is31fl3235a.CurrentScale, bool) {
	switch s {
	case "1", "":
		return is31fl3235a.Scale1x, true
	case "1/2":
		return is31fl3235a.ScaleHalf, true
	case "1/3":
		return is31fl3235a.ScaleThird, true
	case "1/4":
		return is31fl3235a.ScaleQuarter, true
	default:
		return 0, false
	}
}

func scaleString(s is31fl3235a.CurrentScale) string {
	switch s {
	case is31fl3235a.ScaleHalf:
		return "1/2"
	case is31fl3235a.ScaleThird:
		return "1/3"
	case is31fl3235a.ScaleQuarter:
		return "1/4"
	default:
		return "1"
	}
}

// mapDriverErr translates driver sentinels into stable bus-facing codes.
func mapDriverErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, is31fl3235a.ErrChannelRange),
		errors.Is(err, is31fl3235a.ErrScaleRange),
		errors.Is(err, is31fl3235a.ErrPercentRange):
		return errcode.Wrap(errcode.OutOfRange, op, err)
	case errors.Is(err, is31fl3235a.ErrNoShutdownPin):
		return errcode.Wrap(errcode.Unsupported, op, err)
	case errors.Is(err, is31fl3235a.ErrNotReady):
		return errcode.Wrap(errcode.HALNotReady, op, err)
	default:
		return errcode.Wrap(errcode.Transport, op, err)
	}
}
