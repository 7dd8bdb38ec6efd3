// Package device implements the security device model: a common state
// header shared by all variants, the three concrete device kinds, and
// the DTOs they produce.
//
// Devices hold no reference to the audit log. Mutating operations
// return Event values describing what happened; the registry records
// them on the devices' behalf. This keeps the model free of mutable
// back-pointers and makes every operation testable in isolation.
package device

import (
	"math/rand/v2"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
)

// SystemType discriminates the concrete device variant on the wire.
type SystemType string

// Known system types. These values appear in the systemType request
// parameter and in every serialized device.
const (
	TypeHomeAlarm     SystemType = "HomeAlarmSystem"
	TypeBiometricLock SystemType = "BiometricLock"
	TypeCarAlarm      SystemType = "CarAlarmSystem"
)

// Security modes. Exactly these three values are accepted.
const (
	ModeOff  = "Отключено"
	ModeHome = "Дома"
	ModeAway = "Отсутствие"
)

// ValidMode reports whether mode is one of the recognized security modes.
func ValidMode(mode string) bool {
	return mode == ModeOff || mode == ModeHome || mode == ModeAway
}

// Battery and signal bounds shared by all variants.
const (
	BatteryMin = 0
	BatteryMax = 100
	SignalMin  = 1
	SignalMax  = 5
)

// Event describes one auditable state change produced by a device
// operation. The registry turns events into audit rows.
type Event struct {
	Type   audit.EventType
	Detail string
}

// System is the polymorphic device interface.
type System interface {
	// Common returns the shared state header.
	Common() *Base

	// PerformSelfTest runs the variant-specific random subtest set and
	// returns the conjunction.
	PerformSelfTest() (bool, Event)

	// SimulateEmergency picks one variant-specific alarm description
	// and returns the emergency DTO.
	SimulateEmergency() (EmergencyEvent, Event)

	// StatusReport returns a variant-specific snapshot of the full
	// device state, safe to serialize and retain.
	StatusReport() any

	// CalibrateSensors runs the variant-specific calibration.
	CalibrateSensors() Event

	// CheckConnectivity runs the randomized health probe.
	CheckConnectivity() (bool, Event)
}

// Base is the common state header embedded in every variant.
type Base struct {
	SystemType     SystemType `json:"systemType"`
	SystemID       string     `json:"systemId"`
	Location       string     `json:"location"`
	SecurityMode   string     `json:"securityMode"`
	IsArmed        bool       `json:"isArmed"`
	BatteryLevel   int        `json:"batteryLevel"`
	SignalStrength int        `json:"signalStrength"`

	rng *rand.Rand
}

// newBase seeds the common header the way freshly installed hardware
// reports: battery 80-100, signal 1-5.
func newBase(typ SystemType, id, location string, rng *rand.Rand) Base {
	if rng == nil {
		rng = newRand()
	}
	return Base{
		SystemType:     typ,
		SystemID:       id,
		Location:       location,
		SecurityMode:   ModeOff,
		BatteryLevel:   80 + rng.IntN(21),
		SignalStrength: 1 + rng.IntN(5),
		rng:            rng,
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), uint64(time.Now().UnixNano()))) //nolint:gosec // simulation randomness, not crypto
}

// Common implements System.
func (b *Base) Common() *Base { return b }

// Subject converts the header to the audit row columns.
func (b *Base) Subject() audit.Subject {
	return audit.Subject{
		SystemID:       b.SystemID,
		Location:       b.Location,
		SecurityMode:   b.SecurityMode,
		Armed:          b.IsArmed,
		BatteryLevel:   b.BatteryLevel,
		SignalStrength: b.SignalStrength,
	}
}

// Arm puts the device under guard. A repeated call while already armed
// is a silent no-op: ok is false and no event is produced.
func (b *Base) Arm() (Event, bool) {
	if b.IsArmed {
		return Event{}, false
	}
	b.IsArmed = true
	return Event{Type: audit.EventSystemArmed}, true
}

// Disarm removes the device from guard. A repeated call while already
// disarmed is a silent no-op.
func (b *Base) Disarm() (Event, bool) {
	if !b.IsArmed {
		return Event{}, false
	}
	b.IsArmed = false
	return Event{Type: audit.EventSystemDisarmed}, true
}

// SetSecurityMode validates and sets the security mode.
// Unknown modes fail with ErrInvalidMode and leave state unchanged.
func (b *Base) SetSecurityMode(mode string) (Event, error) {
	if !ValidMode(mode) {
		return Event{}, ErrInvalidMode
	}
	b.SecurityMode = mode
	return Event{Type: audit.EventModeChanged, Detail: mode}, nil
}

// SetLocation updates the location. Blank values are ignored.
func (b *Base) SetLocation(location string) (Event, bool) {
	if location == "" {
		return Event{}, false
	}
	b.Location = location
	return Event{Type: audit.EventConfigChanged, Detail: "Location: " + location}, true
}

// SetBatteryLevel sets the battery level, clamped to [0,100]. Not audited.
func (b *Base) SetBatteryLevel(level int) {
	b.BatteryLevel = clamp(level, BatteryMin, BatteryMax)
}

// SetSignalStrength sets the signal strength, clamped to [1,5]. Not audited.
func (b *Base) SetSignalStrength(strength int) {
	b.SignalStrength = clamp(strength, SignalMin, SignalMax)
}

// DriftSensorReadings perturbs battery and signal by a small random
// delta, staying inside their clamped ranges. Called by the periodic
// state logger to simulate live hardware.
func (b *Base) DriftSensorReadings() {
	b.BatteryLevel = clamp(b.BatteryLevel+b.rng.IntN(8)-5, BatteryMin, BatteryMax)
	b.SignalStrength = clamp(b.SignalStrength+b.rng.IntN(3)-1, SignalMin, SignalMax)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EmergencyEvent describes a triggered alarm.
type EmergencyEvent struct {
	SystemID         string     `json:"systemId"`
	SystemType       SystemType `json:"systemType"`
	EventType        string     `json:"eventType"`
	Description      string     `json:"description"`
	Timestamp        time.Time  `json:"timestamp"`
	RequiresResponse bool       `json:"requiresResponse"`
}

// newEmergency builds the DTO and its matching audit event for one
// alarm description picked from the variant's set.
func (b *Base) newEmergency(description string) (EmergencyEvent, Event) {
	ev := EmergencyEvent{
		SystemID:         b.SystemID,
		SystemType:       b.SystemType,
		EventType:        string(audit.EventEmergencySimulated),
		Description:      description,
		Timestamp:        time.Now(),
		RequiresResponse: true,
	}
	return ev, Event{Type: audit.EventEmergencySimulated, Detail: description}
}

// pickEmergency selects one description uniformly.
func (b *Base) pickEmergency(descriptions []string) string {
	return descriptions[b.rng.IntN(len(descriptions))]
}

func selfTestEvent(ok bool) Event {
	if ok {
		return Event{Type: audit.EventSelfTestSuccess}
	}
	return Event{Type: audit.EventSelfTestFailed}
}

func connectivityEvent(ok bool) (bool, Event) {
	detail := "OK"
	if !ok {
		detail = "FAILED"
	}
	return ok, Event{Type: audit.EventConnectivityCheck, Detail: detail}
}
