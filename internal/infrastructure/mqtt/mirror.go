package mqtt

import (
	"encoding/json"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
)

// publisher is the slice of Client the mirror needs. It exists so tests
// can substitute a fake without a broker.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// eventPayload is the JSON message published for each device event.
type eventPayload struct {
	SystemID       string `json:"systemId"`
	Location       string `json:"location"`
	SecurityMode   string `json:"securityMode"`
	IsArmed        bool   `json:"isArmed"`
	BatteryLevel   int    `json:"batteryLevel"`
	SignalStrength int    `json:"signalStrength"`
	EventType      string `json:"eventType"`
	Description    string `json:"description"`
	Detail         string `json:"detail,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// EventMirror publishes device events to sentryfleet/event/{system_id}.
// It satisfies the registry's Mirror interface.
type EventMirror struct {
	pub    publisher
	qos    byte
	logger Logger
}

// NewEventMirror creates a mirror publishing through client at the
// given QoS.
func NewEventMirror(client *Client, qos byte) *EventMirror {
	return &EventMirror{pub: client, qos: qos}
}

// SetLogger sets a logger for publish failures.
func (m *EventMirror) SetLogger(logger Logger) {
	m.logger = logger
}

// MirrorEvent publishes one event. Publishing happens on a separate
// goroutine; the registry's request path never waits on the broker.
func (m *EventMirror) MirrorEvent(s audit.Subject, et audit.EventType, detail string) {
	payload, err := json.Marshal(eventPayload{
		SystemID:       s.SystemID,
		Location:       s.Location,
		SecurityMode:   s.SecurityMode,
		IsArmed:        s.Armed,
		BatteryLevel:   s.BatteryLevel,
		SignalStrength: s.SignalStrength,
		EventType:      string(et),
		Description:    et.Description(),
		Detail:         detail,
		Timestamp:      time.Now().Format(time.RFC3339),
	})
	if err != nil {
		if m.logger != nil {
			m.logger.Error("marshalling event payload", "system_id", s.SystemID, "error", err)
		}
		return
	}

	topic := Topics{}.Event(s.SystemID)
	go func() {
		if err := m.pub.Publish(topic, payload, m.qos, false); err != nil {
			if m.logger != nil {
				m.logger.Warn("mirroring event", "topic", topic, "error", err)
			}
		}
	}()
}
