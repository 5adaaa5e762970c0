// cmd/boardtest/main.go
//
// boardtest exercises an IS31FL3235A board end to end: it brings up the HAL
// against the real I2C bus, then walks every channel through a fade, a burst
// pattern, and a shutdown toggle so a bench operator can eyeball the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"ledcode-go/bus"
	"ledcode-go/conn/periphio"
	"ledcode-go/drivers/is31fl3235a"
	"ledcode-go/services/hal"
	"ledcode-go/types"
	"ledcode-go/x/ramp"
)

// ---------- Configuration ----------

const (
	halReadyTimeout = 5 * time.Second
	requestTimeout  = 2 * time.Second

	// Sequencing timing
	fadeDuration = 600 * time.Millisecond
	fadeSteps    = 24
	dwell        = 300 * time.Millisecond
)

// ---------- Topics ----------

func tControl(method string) bus.Topic {
	return bus.Topic{"hal", "capability", "ledarray", 0, "control", method}
}

func tInfo() bus.Topic { return bus.Topic{"hal", "capability", "ledarray", 0, "info"} }

func main() {
	var (
		i2cRef = flag.String("i2c", "", "periph I2C bus reference")
		addr   = flag.Int("addr", 0x3C, "device I2C address")
		cycles = flag.Int("cycles", 1, "test cycles; 0 = loop forever")
	)
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph host init: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(32)
	go hal.Run(ctx, b.NewConnection("hal"), &singleBus{ref: *i2cRef}, noPins{})

	cli := b.NewConnection("boardtest")

	cfg := map[string]any{
		"version": 1,
		"buses":   []map[string]any{{"id": "i2c0", "type": "i2c", "impl": "periph"}},
		"devices": []map[string]any{{
			"id":      "ledarray-0",
			"type":    "is31fl3235a",
			"bus_ref": map[string]any{"ID": "i2c0", "Type": "i2c"},
			"params":  map[string]any{"addr": *addr},
		}},
	}
	cli.Publish(cli.NewMessage(bus.Topic{"config", "hal"}, cfg, true))

	if err := waitReady(cli); err != nil {
		log.Fatalf("boardtest: %v", err)
	}
	log.Printf("boardtest: ledarray-0 up at 0x%02X", *addr)

	for cycle := 1; *cycles == 0 || cycle <= *cycles; cycle++ {
		log.Printf("boardtest: cycle %d", cycle)

		// Per-channel fade up and back down.
		for ch := 0; ch < is31fl3235a.Channels; ch++ {
			fade(cli, ch, 0, 255)
			fade(cli, ch, 255, 0)
		}
		time.Sleep(dwell)

		// Staged burst: ascending pattern latched in one update.
		vals := make([]float64, is31fl3235a.Channels)
		for i := range vals {
			vals[i] = float64(i * 255 / (is31fl3235a.Channels - 1))
		}
		mustControl(cli, "write", map[string]any{"start": 0, "values": vals})
		time.Sleep(dwell)

		// All lit, then blink via software shutdown.
		mustControl(cli, "write", map[string]any{"start": 0, "values": allOn()})
		mustControl(cli, "software_shutdown", map[string]any{"on": true})
		time.Sleep(dwell)
		mustControl(cli, "software_shutdown", map[string]any{"on": false})
		time.Sleep(dwell)
		mustControl(cli, "write", map[string]any{"start": 0, "values": make([]float64, is31fl3235a.Channels)})
	}

	log.Print("boardtest: done")
}

func allOn() []float64 {
	vals := make([]float64, is31fl3235a.Channels)
	for i := range vals {
		vals[i] = 255
	}
	return vals
}

// fade ramps one channel between levels using linear interpolation.
func fade(cli *bus.Connection, ch int, from, to uint16) {
	ramp.StartLinear(from, to, 255, uint32(fadeDuration.Milliseconds()), fadeSteps,
		func(d time.Duration) bool {
			time.Sleep(d)
			return true
		},
		func(level uint16) {
			mustControl(cli, "set", map[string]any{"channel": ch, "value": float64(level)})
		})
}

func mustControl(cli *bus.Connection, method string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	reply, err := cli.RequestWait(ctx, cli.NewMessage(tControl(method), payload, false))
	if err != nil {
		log.Fatalf("boardtest: %s: %v", method, err)
	}
	if e, isErr := reply.Payload.(types.ErrorReply); isErr {
		log.Fatalf("boardtest: %s rejected: %s %s", method, e.Code, e.Detail)
	}
}

// waitReady blocks until the capability info document is retained.
func waitReady(cli *bus.Connection) error {
	deadline := time.Now().Add(halReadyTimeout)
	for time.Now().Before(deadline) {
		sub := cli.Subscribe(tInfo())
		select {
		case <-sub.Channel():
			cli.Unsubscribe(sub)
			return nil
		case <-time.After(50 * time.Millisecond):
			cli.Unsubscribe(sub)
		}
	}
	return fmt.Errorf("ledarray capability not published within %s", halReadyTimeout)
}

// ---------- Platform factories ----------

type singleBus struct {
	ref string

	mu  sync.Mutex
	i2c drivers.I2C
}

func (s *singleBus) ByID(id string) (drivers.I2C, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i2c != nil {
		return s.i2c, true
	}
	raw, err := i2creg.Open(s.ref)
	if err != nil {
		log.Printf("boardtest: i2c open %q: %v", s.ref, err)
		return nil, false
	}
	s.i2c = periphio.I2C{Bus: raw}
	return s.i2c, true
}

type noPins struct{}

func (noPins) ByNumber(int) (is31fl3235a.ShutdownPin, bool) { return nil, false }
