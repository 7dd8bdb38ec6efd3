package mqtt

import "fmt"

// Topic prefixes for the SentryFleet event mirror.
//
// The server publishes device events and its own status; nothing is
// consumed over MQTT. Scheme: sentryfleet/{category}/{system_id}
const (
	// TopicPrefix is the base for all SentryFleet topics.
	TopicPrefix = "sentryfleet"

	// TopicPrefixSystem is the base for server status topics.
	TopicPrefixSystem = "sentryfleet/system"
)

// Topics provides builders for SentryFleet MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// Event returns the topic for device event notifications.
//
// Example: sentryfleet/event/HOME_001
func (Topics) Event(systemID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, systemID)
}

// SystemStatus returns the topic for server online/offline status.
//
// Example: sentryfleet/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
