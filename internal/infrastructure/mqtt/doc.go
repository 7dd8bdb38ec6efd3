// Package mqtt provides the optional MQTT event mirror for SentryFleet.
//
// This package manages:
//   - Connection to an MQTT broker with auto-reconnect
//   - Publishing device events with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The manager remains strictly request/response over TCP; MQTT is a
// one-way outbound mirror so dashboards and integrations can observe
// device events without polling the server.
//
//	SentryFleet Server → MQTT Broker → Observers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	mirror := mqtt.NewEventMirror(client, byte(cfg.MQTT.QoS))
//	controller.SetMirror(mirror)
package mqtt
