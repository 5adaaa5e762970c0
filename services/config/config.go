// Package config publishes each device's embedded configuration document
// onto the bus at boot: every top-level key becomes one retained message on
// config/<key>, which is what the hal and bridge services subscribe to.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"ledcode-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

const ctxDeviceKey ctxKey = "device"

// WithDevice returns a context carrying the device ID the service resolves
// its embedded config by.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ctxDeviceKey, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes it
// as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(ctxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.Topic{configPrefix, k},
			Payload:  v,
			Retained: true,
		})
	}

	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		_ = s.publishConfig(ctx, conn) // replace with logging if needed
	}()
}
