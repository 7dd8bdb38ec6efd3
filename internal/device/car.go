package device

import (
	"fmt"
	"math/rand/v2"

	"github.com/avolkov/sentryfleet/internal/audit"
)

// Alarm volume levels. Exactly these three values are accepted.
const (
	VolumeQuiet  = "Тихая"
	VolumeMedium = "Средняя"
	VolumeLoud   = "Громкая"
)

// ValidVolume reports whether volume is one of the recognized levels.
func ValidVolume(volume string) bool {
	return volume == VolumeQuiet || volume == VolumeMedium || volume == VolumeLoud
}

// defaultPanicDuration is the panic-mode duration in seconds for new
// car alarms.
const defaultPanicDuration = 30

// CarAlarm is a vehicle alarm with shock, tilt and glass-break sensors.
type CarAlarm struct {
	Base
	ShockSensorActive      bool   `json:"shockSensorActive"`
	TiltSensorActive       bool   `json:"tiltSensorActive"`
	GlassBreakSensorActive bool   `json:"glassBreakSensorActive"`
	RemoteStartEnabled     bool   `json:"remoteStartEnabled"`
	AlarmVolume            string `json:"alarmVolume"`
	PanicModeDuration      int    `json:"panicModeDuration"`
}

// NewCarAlarm creates a car alarm with all sensors active, remote start
// off and medium volume.
func NewCarAlarm(id, location string, rng *rand.Rand) *CarAlarm {
	return &CarAlarm{
		Base:                   newBase(TypeCarAlarm, id, location, rng),
		ShockSensorActive:      true,
		TiltSensorActive:       true,
		GlassBreakSensorActive: true,
		AlarmVolume:            VolumeMedium,
		PanicModeDuration:      defaultPanicDuration,
	}
}

// PerformSelfTest probes the shock, tilt and glass sensors and the siren.
func (c *CarAlarm) PerformSelfTest() (bool, Event) {
	shockOK := c.rng.Float64() > 0.1
	tiltOK := c.rng.Float64() > 0.15
	glassOK := c.rng.Float64() > 0.1
	sirenOK := c.rng.Float64() > 0.05
	ok := shockOK && tiltOK && glassOK && sirenOK
	return ok, selfTestEvent(ok)
}

// SimulateEmergency implements System.
func (c *CarAlarm) SimulateEmergency() (EmergencyEvent, Event) {
	return c.newEmergency(c.pickEmergency([]string{
		"Удар по автомобилю",
		"Наклон автомобиля",
		"Разбитие стекла",
		"Обнаружение движения",
	}))
}

// StatusReport implements System.
func (c *CarAlarm) StatusReport() any {
	return *c
}

// CalibrateSensors re-enables every sensor.
func (c *CarAlarm) CalibrateSensors() Event {
	c.ShockSensorActive = true
	c.TiltSensorActive = true
	c.GlassBreakSensorActive = true
	return Event{Type: audit.EventCalibrationComplete}
}

// CheckConnectivity probes the key fob link.
func (c *CarAlarm) CheckConnectivity() (bool, Event) {
	return connectivityEvent(c.rng.Float64() > 0.25)
}

// ActivatePanicMode sounds the alarm immediately.
func (c *CarAlarm) ActivatePanicMode() []Event {
	return []Event{
		{Type: audit.EventEmergencySimulated, Detail: "Режим паники активирован"},
		{Type: audit.EventPanicModeActivated},
	}
}

// ToggleShockSensor flips the shock sensor.
func (c *CarAlarm) ToggleShockSensor() Event {
	c.ShockSensorActive = !c.ShockSensorActive
	return Event{
		Type:   audit.EventSensorToggled,
		Detail: fmt.Sprintf("Shock sensor: %t", c.ShockSensorActive),
	}
}

// ToggleTiltSensor flips the tilt sensor.
func (c *CarAlarm) ToggleTiltSensor() Event {
	c.TiltSensorActive = !c.TiltSensorActive
	return Event{
		Type:   audit.EventSensorToggled,
		Detail: fmt.Sprintf("Tilt sensor: %t", c.TiltSensorActive),
	}
}

// SetAlarmVolume sets the siren volume. Unknown levels fail with
// ErrInvalidVolume and leave state unchanged.
func (c *CarAlarm) SetAlarmVolume(volume string) (Event, error) {
	if !ValidVolume(volume) {
		return Event{}, ErrInvalidVolume
	}
	c.AlarmVolume = volume
	return Event{Type: audit.EventConfigChanged, Detail: "Volume: " + volume}, nil
}

// SimulateImpact trips the shock sensor. Nothing happens unless the
// alarm is armed and the shock sensor is active.
func (c *CarAlarm) SimulateImpact() []Event {
	if !c.IsArmed || !c.ShockSensorActive {
		return nil
	}
	return []Event{
		{Type: audit.EventEmergencySimulated, Detail: "Обнаружен удар по автомобилю"},
		{Type: audit.EventImpactDetected},
	}
}

// ToggleRemoteStart flips the remote start feature.
func (c *CarAlarm) ToggleRemoteStart() Event {
	c.RemoteStartEnabled = !c.RemoteStartEnabled
	return Event{
		Type:   audit.EventConfigChanged,
		Detail: fmt.Sprintf("Remote start: %t", c.RemoteStartEnabled),
	}
}
