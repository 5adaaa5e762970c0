// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"ledcode-go/bus"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start starts the bridge service. It blocks until ctx is cancelled.
// It listens for JSON config on topic {"config","bridge"} and (re)configures
// the link. The bridge relays bus traffic to a remote peer: the peer sends
// SUB frames for the topics it wants, receives matching messages as PUB
// frames, and may inject its own PUB frames into the local bus. This is how
// an off-board controller drives the LED HAL.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:       conn,
		stateTopic: bus.Topic{"bridge", "state"},
	}
	s.run(ctx)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the JSON-encoded configuration expected on "config/bridge".
type Config struct {
	Transport TransportConfig `json:"transport"`
}

type TransportConfig struct {
	// "tcp" (provided here) or other names registered via RegisterTransport.
	Type string     `json:"type"`
	TCP  *TCPConfig `json:"tcp,omitempty"`
}

// TCPConfig describes the remote peer to dial.
type TCPConfig struct {
	Addr          string `json:"addr"` // host:port
	DialTimeoutMS int    `json:"dial_timeout_ms,omitempty"`
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
	curCfg atomic.Value // stores Config
}

// run waits for config and supervises a single link instance.
func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "bridge"})
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	// Cancel any existing run.
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.curCfg.Store(cfg)
	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		if err := s.handleLink(ctx, rwc); err != nil {
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

// handleLink owns the active link lifetime: it services remote SUB/UNSUB
// requests, forwards matching local messages, and injects remote PUBs.
// The connection is closed on every exit path so the reader goroutine
// always unblocks.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	linkCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer rwc.Close()

	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)

	// Remote-interest subscriptions, keyed by the wire form of the topic.
	subs := map[string]*bus.Subscription{}
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()

	// Reader
	frames := make(chan Frame, 8)
	errCh := make(chan error, 1)
	go func() {
		defer close(frames)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case frames <- f:
			case <-linkCtx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(5 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best-effort close.
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil

		case f, ok := <-frames:
			if !ok {
				// The reader sends on errCh before closing frames on a
				// read failure; an empty errCh means it exited on cancel.
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			switch f.Type {
			case framePing:
				if err := wr.WriteFrame(Frame{Type: framePong}); err != nil {
					return err
				}
			case framePong:
				// Heartbeat answered; nothing to do.
			case framePub:
				var wm wireMessage
				if err := json.Unmarshal(f.Payload, &wm); err != nil {
					continue
				}
				s.conn.Publish(s.conn.NewMessage(wm.busTopic(), wm.Payload, wm.Retained))
			case frameSub:
				topic, key, err := decodeWireTopic(f.Payload)
				if err != nil {
					continue
				}
				if _, dup := subs[key]; dup {
					continue
				}
				sub := s.conn.Subscribe(topic)
				subs[key] = sub
				go forwardToPeer(linkCtx, sub, wr)
			case frameUnsub:
				_, key, err := decodeWireTopic(f.Payload)
				if err != nil {
					continue
				}
				if sub, ok := subs[key]; ok {
					s.conn.Unsubscribe(sub)
					delete(subs, key)
				}
			case frameClose:
				return nil
			}

		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
		}
	}
}

// forwardToPeer relays one subscription's messages as PUB frames. Write
// errors are left to the main loop's heartbeat to discover.
func forwardToPeer(ctx context.Context, sub *bus.Subscription, wr *framedWriter) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			wm := wireMessage{Topic: toWireTopic(msg.Topic), Payload: msg.Payload, Retained: msg.Retained}
			b, err := json.Marshal(wm)
			if err != nil {
				continue
			}
			if err := wr.WriteFrame(Frame{Type: framePub, Payload: b}); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Wire form
// -----------------------------------------------------------------------------

// wireMessage is the JSON payload of PUB frames.
type wireMessage struct {
	Topic    []any `json:"topic"`
	Payload  any   `json:"payload"`
	Retained bool  `json:"retained,omitempty"`
}

func (w wireMessage) busTopic() bus.Topic { return normalizeTopic(w.Topic) }

func toWireTopic(t bus.Topic) []any { return []any(t) }

// normalizeTopic repairs JSON number decoding: integral float64 tokens
// become ints so they match the int capability ids used on the bus.
func normalizeTopic(raw []any) bus.Topic {
	t := make(bus.Topic, len(raw))
	for i, tok := range raw {
		if f, ok := tok.(float64); ok && f == float64(int(f)) {
			t[i] = int(f)
			continue
		}
		t[i] = tok
	}
	return t
}

func decodeWireTopic(p []byte) (bus.Topic, string, error) {
	var raw []any
	if err := json.Unmarshal(p, &raw); err != nil {
		return nil, "", err
	}
	t := normalizeTopic(raw)
	return t, fmt.Sprint([]any(t)), nil
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport allows external packages to add transports (eg. "ws", "serial").
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "tcp":
		return newTCPTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// TCPDial is swappable for tests; the default uses net.Dialer.
var TCPDial = func(ctx context.Context, c TCPConfig) (io.ReadWriteCloser, error) {
	timeout := time.Duration(c.DialTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", c.Addr)
}

type tcpTransport struct {
	cfg TransportConfig
}

func newTCPTransport(cfg TransportConfig) (Transport, error) {
	if cfg.TCP == nil || cfg.TCP.Addr == "" {
		return nil, errors.New("tcp transport requires an address")
	}
	return &tcpTransport{cfg: cfg}, nil
}

func (t *tcpTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	return TCPDial(ctx, *t.cfg.TCP)
}

func (t *tcpTransport) String() string { return "tcp" }

// -----------------------------------------------------------------------------
// Framing
// -----------------------------------------------------------------------------

const (
	framePing  byte = 0x01
	framePong  byte = 0x02
	framePub   byte = 0x10
	frameSub   byte = 0x11
	frameUnsub byte = 0x12
	frameClose byte = 0x7f
)

// Frame is a very simple length-prefixed frame.
type Frame struct {
	Type    byte
	Payload []byte
}

type framedReader struct{ r io.Reader }

type framedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newFramedReader(r io.Reader) *framedReader { return &framedReader{r: r} }
func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{w: w} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return Frame{}, err
	}
	typ := hdr[0]
	n := int(hdr[1])<<8 | int(hdr[2])
	var buf []byte
	if n > 0 {
		buf = make([]byte, n)
		if _, err := io.ReadFull(fr.r, buf); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Type: typ, Payload: buf}, nil
}

func (fw *framedWriter) WriteFrame(f Frame) error {
	if len(f.Payload) > 0xFFFF {
		return fmt.Errorf("frame too large: %d", len(f.Payload))
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	hdr := []byte{f.Type, byte(len(f.Payload) >> 8), byte(len(f.Payload) & 0xFF)}
	if _, err := fw.w.Write(hdr); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		_, err := fw.w.Write(f.Payload)
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	case map[string]any:
		// Already a decoded object (e.g. if provided internally); re-marshal for simplicity.
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	return cfg, nil
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	msg := s.conn.NewMessage(s.stateTopic, payload, true)
	s.conn.Publish(msg)
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
