package device

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

// Decode hydrates a device from its serialized body, switching on the
// systemType discriminant. Fields absent from the body keep their
// constructor defaults; numeric fields are re-clamped and an
// unrecognized security mode falls back to "Отключено".
func Decode(systemType SystemType, body []byte, rng *rand.Rand) (System, error) {
	var sys System
	switch systemType {
	case TypeHomeAlarm:
		h := NewHomeAlarm("", "", rng)
		if err := json.Unmarshal(body, h); err != nil {
			return nil, fmt.Errorf("decoding home alarm: %w", err)
		}
		// Alarm sound is derived from silent mode, not trusted from input.
		h.SetSilentMode(h.SilentMode)
		sys = h
	case TypeBiometricLock:
		l := NewBiometricLock("", "", rng)
		if err := json.Unmarshal(body, l); err != nil {
			return nil, fmt.Errorf("decoding biometric lock: %w", err)
		}
		if l.AuthorizedUsers == nil {
			l.AuthorizedUsers = make(map[string]string)
		}
		if l.FailedAttempts < 0 {
			l.FailedAttempts = 0
		}
		if l.LockStatus == "" {
			l.LockStatus = LockStatusOpen
		}
		if l.AutoLockDelay <= 0 {
			l.AutoLockDelay = defaultAutoLockDelay
		}
		sys = l
	case TypeCarAlarm:
		c := NewCarAlarm("", "", rng)
		if err := json.Unmarshal(body, c); err != nil {
			return nil, fmt.Errorf("decoding car alarm: %w", err)
		}
		if !ValidVolume(c.AlarmVolume) {
			c.AlarmVolume = VolumeMedium
		}
		if c.PanicModeDuration <= 0 {
			c.PanicModeDuration = defaultPanicDuration
		}
		sys = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSystemType, systemType)
	}

	b := sys.Common()
	b.SystemType = systemType
	b.SetBatteryLevel(b.BatteryLevel)
	b.SetSignalStrength(b.SignalStrength)
	if !ValidMode(b.SecurityMode) {
		b.SecurityMode = ModeOff
	}
	return sys, nil
}
