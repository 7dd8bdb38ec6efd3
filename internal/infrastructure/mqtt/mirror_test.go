package mqtt

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
)

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	done     chan struct{}
}

func (f *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	close(f.done)
	return nil
}

func TestMirrorEventPublishesToEventTopic(t *testing.T) {
	pub := &fakePublisher{done: make(chan struct{})}
	mirror := &EventMirror{pub: pub, qos: 1}

	mirror.MirrorEvent(audit.Subject{
		SystemID:       "HOME_001",
		Location:       "Кухня",
		SecurityMode:   "Дома",
		Armed:          true,
		BatteryLevel:   85,
		SignalStrength: 4,
	}, audit.EventSystemArmed, "")

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish never happened")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topics[0] != "sentryfleet/event/HOME_001" {
		t.Errorf("topic = %q, want sentryfleet/event/HOME_001", pub.topics[0])
	}

	var payload eventPayload
	if err := json.Unmarshal(pub.payloads[0], &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.SystemID != "HOME_001" || payload.EventType != "SYSTEM_ARMED" || !payload.IsArmed {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Description == "" {
		t.Error("payload description must carry the event description")
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.Event("CAR_7"); got != "sentryfleet/event/CAR_7" {
		t.Errorf("Event() = %q", got)
	}
	if got := topics.SystemStatus(); got != "sentryfleet/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}
