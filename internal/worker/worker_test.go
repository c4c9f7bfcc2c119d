package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/events"
)

func TestEventBridgeForwardsAllTypes(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}

	pub, err := events.NewNATSPublisher(srv.ClientURL(), "desk")
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	ch := make(chan *nats.Msg, len(events.AllEventTypes))
	sub, err := nc.ChanSubscribe("desk.>", ch)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	d := events.NewInMemoryDispatcher(zap.NewNop())
	StartEventBridge(d, pub, zap.NewNop())
	for _, et := range events.AllEventTypes {
		if err := d.Publish(context.Background(), events.NewEvent(et, "CO-1", "", time.Now(), nil)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pub.Flush(); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for range events.AllEventTypes {
		select {
		case msg := <-ch:
			var e events.Event
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				t.Fatal(err)
			}
			if msg.Subject != "desk."+string(e.Type) {
				t.Errorf("subject %q for %s", msg.Subject, e.Type)
			}
			seen[string(e.Type)] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out; got %v", seen)
		}
	}
	if len(seen) != len(events.AllEventTypes) {
		t.Fatalf("seen = %v", seen)
	}
}

func TestEventBridgeNilPublisher(t *testing.T) {
	StartEventBridge(events.NewInMemoryDispatcher(zap.NewNop()), nil, zap.NewNop())
	StartNotificationWorker(nil)
}
