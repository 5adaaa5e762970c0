package heartbeat

import (
	"context"
	"testing"
	"time"

	"ledcode-go/bus"
)

func TestHeartbeat_PublishesRetained(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb-test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var svc Service
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatal(err)
	}

	sub := conn.Subscribe(bus.Topic{"system", "heartbeat"})
	defer conn.Unsubscribe(sub)

	select {
	case m := <-sub.Channel():
		p, ok := m.Payload.(map[string]any)
		if !ok {
			t.Fatalf("payload type: %T", m.Payload)
		}
		if _, ok := p["seq"]; !ok {
			t.Fatalf("missing seq: %#v", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no heartbeat within 3s")
	}
}
