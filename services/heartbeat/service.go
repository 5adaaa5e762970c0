// Package heartbeat emits a periodic liveness message so bus peers (and the
// bridge's remote side) can tell the process is still scheduling.
package heartbeat

import (
	"context"
	"time"

	"ledcode-go/bus"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicHeartbeat       = bus.Topic{"system", "heartbeat"}
)

type Service struct{}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	var seq uint64

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tick.C:
			seq++
			conn.Publish(conn.NewMessage(topicHeartbeat, map[string]any{
				"seq":   seq,
				"ts_ms": t.UnixMilli(),
			}, true))
		case msg := <-cfgSub.Channel():
			// Change tick interval if needed
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"]; ok {
					if interval, ok := iv.(float64); ok && interval > 0 {
						tick.Reset(time.Duration(interval) * time.Second)
					}
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
