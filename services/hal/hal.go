// services/hal/hal.go
package hal

import (
	"context"
	"encoding/json"
	"time"

	"ledcode-go/bus"
	"ledcode-go/errcode"
	"ledcode-go/types"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

func Run(ctx context.Context, conn *bus.Connection, i2cFactory I2CBusFactory, pinFactory PinFactory) {
	s := &service{
		conn:       conn,
		i2cFactory: i2cFactory,
		pinFactory: pinFactory,
		devices:    map[string]devEntry{},
		capToDev:   map[capKey]string{},
		nextCapID:  map[types.Kind]int{},
	}
	s.loop(ctx)
}

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

type devEntry struct {
	adaptor Adaptor
	caps    map[types.Kind]int // kind -> numeric capability id
	busID   string
}

type capKey struct {
	kind types.Kind
	id   int
}

type service struct {
	conn       *bus.Connection
	i2cFactory I2CBusFactory
	pinFactory PinFactory

	devices   map[string]devEntry
	capToDev  map[capKey]string
	nextCapID map[types.Kind]int
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "hal"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"hal", "capability", "+", "+", "control", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg HALConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)
		}
	}
}

// handleControl dispatches hal/capability/<kind>/<id:int>/control/<method>.
func (s *service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		return
	}
	kindStr, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kindStr == "" {
		s.replyErr(msg, errcode.InvalidTopic, "invalid capability address")
		return
	}
	kind := types.Kind(kindStr)
	devID, ok := s.capToDev[capKey{kind: kind, id: idNum}]
	if !ok {
		s.replyErr(msg, errcode.UnknownCapability, "")
		return
	}
	method, _ := msg.Topic[5].(string)

	ent := s.devices[devID]
	if ent.adaptor == nil {
		s.replyErr(msg, errcode.HALNotReady, "no adaptor")
		return
	}
	res, err := ent.adaptor.Control(kind, method, msg.Payload)
	if err != nil {
		if err == ErrUnsupported {
			s.replyErr(msg, errcode.Unsupported, method)
		} else {
			s.replyErr(msg, errcode.Of(err), err.Error())
		}
		return
	}
	s.replyOK(msg, res)

	// Mutations change the mirrored channel state; refresh the retained
	// state document so late subscribers see the current picture.
	switch method {
	case "get", "snapshot":
	default:
		s.publishCapState(ent, kind)
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

func (s *service) applyConfig(cfg HALConfig) error {
	seen := map[string]struct{}{}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}

		// Skip if already present (simple idempotence for now)
		if _, exists := s.devices[d.ID]; exists {
			continue
		}

		b, ok := findBuilder(d.Type)
		if !ok {
			continue
		}
		in := BuildInput{
			Buses:    s.i2cFactory,
			Pins:     s.pinFactory,
			DeviceID: d.ID,
			Type:     d.Type,
			Params:   d.Params,
		}
		in.BusRef.Type = d.BusRef.Type
		in.BusRef.ID = d.BusRef.ID

		ad, err := b.Build(in)
		if err != nil {
			s.publishState("error", "device_build_failed:"+d.ID, err)
			continue
		}

		// Record adaptor and publish retained capability info/state.
		entry := devEntry{adaptor: ad, busID: d.BusRef.ID, caps: map[types.Kind]int{}}
		for _, ci := range ad.Capabilities() {
			id := s.nextCapID[ci.Kind]
			s.nextCapID[ci.Kind]++

			entry.caps[ci.Kind] = id
			s.capToDev[capKey{kind: ci.Kind, id: id}] = d.ID

			s.pubRet(capTopic(ci.Kind, id, "info"), ci.Info)
			s.pubRet(capTopic(ci.Kind, id, "state"),
				map[string]any{"link": "up", "ts_ms": time.Now().UnixMilli()})
		}
		s.devices[d.ID] = entry
	}

	// Tidy-up: remove devices not in config
	for devID, ent := range s.devices {
		if _, ok := seen[devID]; ok {
			continue
		}
		for kind, id := range ent.caps {
			s.pubRet(capTopic(kind, id, "info"), nil)
			s.pubRet(capTopic(kind, id, "state"),
				map[string]any{"link": "down", "ts_ms": time.Now().UnixMilli()})
			delete(s.capToDev, capKey{kind: kind, id: id})
		}
		delete(s.devices, devID)
	}

	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// publishCapState retains the adaptor's current snapshot on the capability
// state topic.
func (s *service) publishCapState(ent devEntry, kind types.Kind) {
	id, ok := ent.caps[kind]
	if !ok {
		return
	}
	snap, err := ent.adaptor.Control(kind, "snapshot", nil)
	if err != nil {
		return
	}
	s.pubRet(capTopic(kind, id, "state"),
		map[string]any{"link": "up", "snapshot": snap, "ts_ms": time.Now().UnixMilli()})
}

func (s *service) publishState(level, status string, err error) {
	payload := map[string]any{"level": level, "status": status, "ts_ms": time.Now().UnixMilli()}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{"hal", "state"}, payload, true))
}

func (s *service) replyOK(req *bus.Message, result any) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, types.OKReply{OK: true, Result: result}, false)
}

func (s *service) replyErr(req *bus.Message, code errcode.Code, detail string) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Code: string(code), Detail: detail}, false)
}

func capTopic(kind types.Kind, id int, rest ...bus.Token) bus.Topic {
	base := bus.Topic{"hal", "capability", string(kind), id}
	return append(base, rest...)
}

func (s *service) pubRet(t bus.Topic, p any) {
	s.conn.Publish(s.conn.NewMessage(t, p, true))
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		// Accept maps, structs, numbers… by marshaling then decoding to T.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
