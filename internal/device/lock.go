package device

import (
	"fmt"
	"math/rand/v2"

	"github.com/avolkov/sentryfleet/internal/audit"
)

// Lock status values.
const (
	LockStatusOpen   = "Открыт"
	LockStatusLocked = "Заблокирован"
)

// lockoutThreshold is the consecutive-failure count that triggers an
// emergency row.
const lockoutThreshold = 3

// defaultAutoLockDelay is the auto-lock delay in seconds for new locks.
const defaultAutoLockDelay = 30

// BiometricLock is a fingerprint/face-recognition door lock.
type BiometricLock struct {
	Base
	AuthorizedUsers        map[string]string `json:"authorizedUsers"`
	FailedAttempts         int               `json:"failedAttempts"`
	FingerprintEnabled     bool              `json:"fingerprintEnabled"`
	FaceRecognitionEnabled bool              `json:"faceRecognitionEnabled"`
	LockStatus             string            `json:"lockStatus"`
	AutoLockDelay          int               `json:"autoLockDelay"`
}

// NewBiometricLock creates an unlocked lock with the fingerprint
// scanner enabled and no authorized users.
func NewBiometricLock(id, location string, rng *rand.Rand) *BiometricLock {
	return &BiometricLock{
		Base:               newBase(TypeBiometricLock, id, location, rng),
		AuthorizedUsers:    make(map[string]string),
		FingerprintEnabled: true,
		LockStatus:         LockStatusOpen,
		AutoLockDelay:      defaultAutoLockDelay,
	}
}

// PerformSelfTest probes the sensor, memory and motor subsystems.
func (l *BiometricLock) PerformSelfTest() (bool, Event) {
	sensorOK := l.rng.Float64() > 0.1
	memoryOK := l.rng.Float64() > 0.05
	motorOK := l.rng.Float64() > 0.15
	ok := sensorOK && memoryOK && motorOK
	return ok, selfTestEvent(ok)
}

// SimulateEmergency implements System.
func (l *BiometricLock) SimulateEmergency() (EmergencyEvent, Event) {
	return l.newEmergency(l.pickEmergency([]string{
		"Попытка взлома",
		"Сбой датчика",
		"Блокировка механизма",
		"Сбой питания",
	}))
}

// StatusReport implements System. The authorized-user map is cloned so
// the snapshot stays stable after further mutation.
func (l *BiometricLock) StatusReport() any {
	cp := *l
	cp.AuthorizedUsers = make(map[string]string, len(l.AuthorizedUsers))
	for k, v := range l.AuthorizedUsers {
		cp.AuthorizedUsers[k] = v
	}
	return cp
}

// CalibrateSensors resets the consecutive-failure counter.
func (l *BiometricLock) CalibrateSensors() Event {
	l.FailedAttempts = 0
	return Event{Type: audit.EventCalibrationComplete, Detail: "Сброс числа неудач"}
}

// CheckConnectivity implements System.
func (l *BiometricLock) CheckConnectivity() (bool, Event) {
	return connectivityEvent(l.rng.Float64() > 0.15)
}

// AuthenticateUser matches a fingerprint against the authorized set.
// A hit resets the failure counter. A miss increments it, and reaching
// three consecutive failures additionally raises an emergency event.
func (l *BiometricLock) AuthenticateUser(fingerprintID string) (bool, []Event) {
	if name, ok := l.AuthorizedUsers[fingerprintID]; ok {
		l.FailedAttempts = 0
		return true, []Event{{Type: audit.EventAuthSuccess, Detail: name}}
	}

	l.FailedAttempts++
	events := []Event{{
		Type:   audit.EventAuthFailed,
		Detail: fmt.Sprintf("Неудачных попыток %d", l.FailedAttempts),
	}}
	if l.FailedAttempts >= lockoutThreshold {
		events = append(events, Event{
			Type:   audit.EventEmergencySimulated,
			Detail: "Многократные неудачные попытки доступа",
		})
	}
	return false, events
}

// AddUser registers a fingerprint with a display name.
func (l *BiometricLock) AddUser(fingerprintID, name string) Event {
	l.AuthorizedUsers[fingerprintID] = name
	return Event{Type: audit.EventUserAdded, Detail: name}
}

// RemoveUser deregisters a fingerprint. Unknown IDs are a no-op.
func (l *BiometricLock) RemoveUser(fingerprintID string) (Event, bool) {
	name, ok := l.AuthorizedUsers[fingerprintID]
	if !ok {
		return Event{}, false
	}
	delete(l.AuthorizedUsers, fingerprintID)
	return Event{
		Type:   audit.EventConfigChanged,
		Detail: "Пользователь исключен: " + name,
	}, true
}

// LockDoor engages the lock.
func (l *BiometricLock) LockDoor() Event {
	l.LockStatus = LockStatusLocked
	return Event{Type: audit.EventDoorLocked}
}

// UnlockDoor disengages the lock.
func (l *BiometricLock) UnlockDoor() Event {
	l.LockStatus = LockStatusOpen
	return Event{Type: audit.EventDoorUnlocked}
}

// ToggleFingerprintScanner flips the fingerprint scanner.
func (l *BiometricLock) ToggleFingerprintScanner() Event {
	l.FingerprintEnabled = !l.FingerprintEnabled
	return Event{
		Type:   audit.EventSensorToggled,
		Detail: fmt.Sprintf("Сканер отпечатков: %t", l.FingerprintEnabled),
	}
}

// SetAutoLockDelay sets the auto-lock delay. Non-positive values are
// ignored.
func (l *BiometricLock) SetAutoLockDelay(seconds int) (Event, bool) {
	if seconds <= 0 {
		return Event{}, false
	}
	l.AutoLockDelay = seconds
	return Event{
		Type:   audit.EventConfigChanged,
		Detail: fmt.Sprintf("Автоблокировка: %d", seconds),
	}, true
}
