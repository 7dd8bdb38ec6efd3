package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/avolkov/sentryfleet/internal/audit"
)

// WriteSystemGauges writes the current gauges for a single security system.
//
// This is the primary method for recording fleet telemetry. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Recorded fields: battery_level, signal_strength, is_armed (0/1).
// Tags: system_id, location, security_mode.
//
// Example:
//
//	client.WriteSystemGauges(audit.Subject{
//	    SystemID: "HOME_001", Location: "Кухня",
//	    BatteryLevel: 85, SignalStrength: 4,
//	})
func (c *Client) WriteSystemGauges(s audit.Subject) {
	if !c.IsConnected() {
		return
	}

	armed := 0
	if s.Armed {
		armed = 1
	}

	point := write.NewPoint(
		"system_gauges",
		map[string]string{
			"system_id":     s.SystemID,
			"location":      s.Location,
			"security_mode": s.SecurityMode,
		},
		map[string]interface{}{
			"battery_level":   s.BatteryLevel,
			"signal_strength": s.SignalStrength,
			"is_armed":        armed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFleetSummary writes aggregate counts for the whole fleet.
//
// Parameters:
//   - total: Number of registered systems
//   - armed: Number of systems currently armed
func (c *Client) WriteFleetSummary(total, armed int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"fleet_summary",
		nil,
		map[string]interface{}{
			"total_systems": total,
			"armed_systems": armed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
