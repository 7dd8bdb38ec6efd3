package device

import (
	"fmt"
	"math/rand/v2"

	"github.com/avolkov/sentryfleet/internal/audit"
)

// Alarm sounds derived from the silent-mode flag.
const (
	SoundSiren  = "Сирена"
	SoundSilent = "Без звука"
)

// HomeAlarm is a residential alarm panel with door, window and motion
// sensor groups.
type HomeAlarm struct {
	Base
	DoorSensorsActive   bool   `json:"doorSensorsActive"`
	WindowSensorsActive bool   `json:"windowSensorsActive"`
	MotionSensorsActive bool   `json:"motionSensorsActive"`
	SensitivityLevel    int    `json:"sensitivityLevel"`
	SilentMode          bool   `json:"silentMode"`
	AlarmSound          string `json:"alarmSound"`
}

// NewHomeAlarm creates a home alarm with all sensor groups active and
// mid-range sensitivity. A nil rng falls back to a time-seeded source.
func NewHomeAlarm(id, location string, rng *rand.Rand) *HomeAlarm {
	return &HomeAlarm{
		Base:                newBase(TypeHomeAlarm, id, location, rng),
		DoorSensorsActive:   true,
		WindowSensorsActive: true,
		MotionSensorsActive: true,
		SensitivityLevel:    3,
		AlarmSound:          SoundSiren,
	}
}

// PerformSelfTest probes each sensor group independently; any single
// failure fails the whole test.
func (h *HomeAlarm) PerformSelfTest() (bool, Event) {
	doorOK := h.rng.Float64() > 0.1
	windowOK := h.rng.Float64() > 0.1
	motionOK := h.rng.Float64() > 0.1
	ok := doorOK && windowOK && motionOK
	return ok, selfTestEvent(ok)
}

// SimulateEmergency implements System.
func (h *HomeAlarm) SimulateEmergency() (EmergencyEvent, Event) {
	return h.newEmergency(h.pickEmergency([]string{
		"Взлом двери",
		"Разбитие окна",
		"Обнаружение движения",
		"Пожар",
	}))
}

// StatusReport implements System.
func (h *HomeAlarm) StatusReport() any {
	return *h
}

// CalibrateSensors perturbs the sensitivity level by a small random
// delta, staying inside [1,5].
func (h *HomeAlarm) CalibrateSensors() Event {
	h.SensitivityLevel = clamp(h.SensitivityLevel+h.rng.IntN(3)-1, 1, 5)
	return Event{
		Type:   audit.EventCalibrationComplete,
		Detail: fmt.Sprintf("Sensitivity: %d", h.SensitivityLevel),
	}
}

// CheckConnectivity implements System.
func (h *HomeAlarm) CheckConnectivity() (bool, Event) {
	return connectivityEvent(h.rng.Float64() > 0.2)
}

// ToggleDoorSensors flips the door sensor group.
func (h *HomeAlarm) ToggleDoorSensors() Event {
	h.DoorSensorsActive = !h.DoorSensorsActive
	return Event{
		Type:   audit.EventSensorToggled,
		Detail: fmt.Sprintf("Door sensors: %t", h.DoorSensorsActive),
	}
}

// ToggleWindowSensors flips the window sensor group.
func (h *HomeAlarm) ToggleWindowSensors() Event {
	h.WindowSensorsActive = !h.WindowSensorsActive
	return Event{
		Type:   audit.EventSensorToggled,
		Detail: fmt.Sprintf("Window sensors: %t", h.WindowSensorsActive),
	}
}

// SetSensitivity sets the sensitivity level. Values outside [1,5] are
// ignored.
func (h *HomeAlarm) SetSensitivity(level int) (Event, bool) {
	if level < 1 || level > 5 {
		return Event{}, false
	}
	h.SensitivityLevel = level
	return Event{
		Type:   audit.EventConfigChanged,
		Detail: fmt.Sprintf("Sensitivity: %d", level),
	}, true
}

// ToggleSilentMode flips silent mode and keeps the alarm sound in sync.
func (h *HomeAlarm) ToggleSilentMode() Event {
	h.SetSilentMode(!h.SilentMode)
	return Event{
		Type:   audit.EventConfigChanged,
		Detail: fmt.Sprintf("Silent mode: %t", h.SilentMode),
	}
}

// SetSilentMode sets silent mode directly. The alarm sound is derived:
// silent devices report "Без звука", audible ones "Сирена".
func (h *HomeAlarm) SetSilentMode(silent bool) {
	h.SilentMode = silent
	if silent {
		h.AlarmSound = SoundSilent
	} else {
		h.AlarmSound = SoundSiren
	}
}

// SimulateIntrusion trips the alarm. Nothing happens while disarmed.
func (h *HomeAlarm) SimulateIntrusion() []Event {
	if !h.IsArmed {
		return nil
	}
	return []Event{
		{Type: audit.EventEmergencySimulated, Detail: "Обнаружено вторжение!"},
		{Type: audit.EventIntrusionDetected},
	}
}
