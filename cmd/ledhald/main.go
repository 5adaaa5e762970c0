// cmd/ledhald/main.go
//
// ledhald runs the LED HAL on a Linux host: it opens the periph.io I2C bus
// and GPIO, publishes the embedded device configuration, and serves control
// requests over the in-process bus (and, via the bridge, over TCP).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"ledcode-go/bus"
	"ledcode-go/conn/periphio"
	"ledcode-go/drivers/is31fl3235a"
	"ledcode-go/services/bridge"
	"ledcode-go/services/config"
	"ledcode-go/services/hal"
	"ledcode-go/services/heartbeat"
)

func main() {
	var (
		device = flag.String("device", "ledboard", "embedded config to publish")
		i2cRef = flag.String("i2c", "", "periph I2C bus reference (name or number; empty = first available)")
		qLen   = flag.Int("queue", 16, "bus queue length per subscription")
	)
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph host init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(*qLen)

	cfgSvc := config.NewConfigService()
	cfgSvc.Start(config.WithDevice(ctx, *device), b.NewConnection("config"))

	var hb heartbeat.Service
	if err := hb.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		log.Fatalf("heartbeat: %v", err)
	}

	go bridge.Start(ctx, b.NewConnection("bridge"))

	buses := &periphBuses{ref: *i2cRef, open: map[string]drivers.I2C{}}
	log.Printf("ledhald: serving device %q", *device)
	hal.Run(ctx, b.NewConnection("hal"), buses, periphPins{})
}

// periphBuses opens the configured periph I2C reference on demand and hands
// it out for whatever bus id the HAL config names. Buses stay open for the
// process lifetime.
type periphBuses struct {
	ref string

	mu   sync.Mutex
	open map[string]drivers.I2C
}

func (p *periphBuses) ByID(id string) (drivers.I2C, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.open[id]; ok {
		return b, true
	}
	raw, err := i2creg.Open(p.ref)
	if err != nil {
		log.Printf("ledhald: i2c open %q: %v", p.ref, err)
		return nil, false
	}
	b := periphio.I2C{Bus: raw}
	p.open[id] = b
	return b, true
}

// periphPins resolves GPIO numbers to periph pins for the SDB line.
type periphPins struct{}

func (periphPins) ByNumber(n int) (is31fl3235a.ShutdownPin, bool) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
	if pin == nil {
		return nil, false
	}
	return periphio.Pin{Out: pin}, true
}
