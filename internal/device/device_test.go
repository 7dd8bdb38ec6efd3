package device

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/avolkov/sentryfleet/internal/audit"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewBaseDefaults(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())
	b := h.Common()

	if b.SystemType != TypeHomeAlarm {
		t.Errorf("SystemType = %q", b.SystemType)
	}
	if b.SecurityMode != ModeOff {
		t.Errorf("SecurityMode = %q, want %q", b.SecurityMode, ModeOff)
	}
	if b.IsArmed {
		t.Error("new device must start disarmed")
	}
	if b.BatteryLevel < 80 || b.BatteryLevel > 100 {
		t.Errorf("BatteryLevel = %d, want 80-100", b.BatteryLevel)
	}
	if b.SignalStrength < SignalMin || b.SignalStrength > SignalMax {
		t.Errorf("SignalStrength = %d, want %d-%d", b.SignalStrength, SignalMin, SignalMax)
	}
}

func TestArmDisarmTransitions(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())

	ev, ok := h.Arm()
	if !ok || ev.Type != audit.EventSystemArmed {
		t.Fatalf("Arm() = (%v, %t)", ev, ok)
	}
	if _, ok := h.Arm(); ok {
		t.Error("arming an armed device must be a no-op")
	}

	ev, ok = h.Disarm()
	if !ok || ev.Type != audit.EventSystemDisarmed {
		t.Fatalf("Disarm() = (%v, %t)", ev, ok)
	}
	if _, ok := h.Disarm(); ok {
		t.Error("disarming a disarmed device must be a no-op")
	}
}

func TestSetSecurityMode(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())

	ev, err := h.SetSecurityMode(ModeAway)
	if err != nil || ev.Type != audit.EventModeChanged || ev.Detail != ModeAway {
		t.Fatalf("SetSecurityMode(Away) = (%v, %v)", ev, err)
	}

	if _, err := h.SetSecurityMode("Ночной"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("SetSecurityMode(unknown) error = %v, want ErrInvalidMode", err)
	}
	if h.SecurityMode != ModeAway {
		t.Errorf("mode changed to %q on rejected input", h.SecurityMode)
	}
}

func TestBatteryAndSignalClamping(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())

	h.SetBatteryLevel(150)
	if h.BatteryLevel != BatteryMax {
		t.Errorf("BatteryLevel = %d, want %d", h.BatteryLevel, BatteryMax)
	}
	h.SetBatteryLevel(-5)
	if h.BatteryLevel != BatteryMin {
		t.Errorf("BatteryLevel = %d, want %d", h.BatteryLevel, BatteryMin)
	}

	h.SetSignalStrength(9)
	if h.SignalStrength != SignalMax {
		t.Errorf("SignalStrength = %d, want %d", h.SignalStrength, SignalMax)
	}
	h.SetSignalStrength(0)
	if h.SignalStrength != SignalMin {
		t.Errorf("SignalStrength = %d, want %d", h.SignalStrength, SignalMin)
	}
}

func TestSetLocationBlankIgnored(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())

	if _, ok := h.SetLocation(""); ok {
		t.Error("blank location must be rejected")
	}
	if _, ok := h.SetLocation("Прихожая"); !ok || h.Location != "Прихожая" {
		t.Errorf("Location = %q", h.Location)
	}
}

func TestDriftStaysInRange(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())
	for i := 0; i < 1000; i++ {
		h.DriftSensorReadings()
		if h.BatteryLevel < BatteryMin || h.BatteryLevel > BatteryMax {
			t.Fatalf("battery drifted out of range: %d", h.BatteryLevel)
		}
		if h.SignalStrength < SignalMin || h.SignalStrength > SignalMax {
			t.Fatalf("signal drifted out of range: %d", h.SignalStrength)
		}
	}
}

func TestSilentModeDerivesAlarmSound(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())
	if h.AlarmSound != SoundSiren {
		t.Fatalf("AlarmSound = %q, want %q", h.AlarmSound, SoundSiren)
	}

	h.SetSilentMode(true)
	if h.AlarmSound != SoundSilent {
		t.Errorf("AlarmSound = %q, want %q", h.AlarmSound, SoundSilent)
	}

	h.ToggleSilentMode()
	if h.SilentMode || h.AlarmSound != SoundSiren {
		t.Errorf("after toggle: silent=%t sound=%q", h.SilentMode, h.AlarmSound)
	}
}

func TestHomeAlarmSensitivityBounds(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())

	if _, ok := h.SetSensitivity(0); ok {
		t.Error("SetSensitivity(0) must be rejected")
	}
	if _, ok := h.SetSensitivity(6); ok {
		t.Error("SetSensitivity(6) must be rejected")
	}
	if _, ok := h.SetSensitivity(5); !ok || h.SensitivityLevel != 5 {
		t.Errorf("SensitivityLevel = %d, want 5", h.SensitivityLevel)
	}
}

func TestLockAuthenticationAndLockout(t *testing.T) {
	l := NewBiometricLock("L1", "Офис", testRand())
	l.AddUser("fp-1", "Анна")

	ok, events := l.AuthenticateUser("fp-1")
	if !ok || len(events) != 1 || events[0].Type != audit.EventAuthSuccess {
		t.Fatalf("AuthenticateUser(known) = (%t, %v)", ok, events)
	}

	for i := 1; i <= 2; i++ {
		ok, events = l.AuthenticateUser("fp-x")
		if ok || len(events) != 1 || events[0].Type != audit.EventAuthFailed {
			t.Fatalf("failure %d = (%t, %v)", i, ok, events)
		}
	}

	// Third consecutive failure raises an emergency alongside the failure.
	ok, events = l.AuthenticateUser("fp-x")
	if ok || len(events) != 2 || events[1].Type != audit.EventEmergencySimulated {
		t.Fatalf("lockout events = (%t, %v)", ok, events)
	}

	// A success resets the counter.
	if _, events = l.AuthenticateUser("fp-1"); len(events) != 1 {
		t.Fatalf("reset events = %v", events)
	}
	if l.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d after success", l.FailedAttempts)
	}
}

func TestLockCalibrationResetsFailures(t *testing.T) {
	l := NewBiometricLock("L1", "Офис", testRand())
	l.AuthenticateUser("fp-x")
	l.AuthenticateUser("fp-x")

	ev := l.CalibrateSensors()
	if ev.Type != audit.EventCalibrationComplete {
		t.Errorf("CalibrateSensors() = %v", ev)
	}
	if l.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d after calibration", l.FailedAttempts)
	}
}

func TestLockStatusReportClonesUsers(t *testing.T) {
	l := NewBiometricLock("L1", "Офис", testRand())
	l.AddUser("fp-1", "Анна")

	report := l.StatusReport().(BiometricLock)
	l.AddUser("fp-2", "Борис")

	if len(report.AuthorizedUsers) != 1 {
		t.Errorf("snapshot users = %d, want 1", len(report.AuthorizedUsers))
	}
}

func TestCarAlarmVolume(t *testing.T) {
	c := NewCarAlarm("C1", "Гараж", testRand())

	if _, err := c.SetAlarmVolume("Оглушительная"); !errors.Is(err, ErrInvalidVolume) {
		t.Errorf("SetAlarmVolume(unknown) error = %v, want ErrInvalidVolume", err)
	}
	if c.AlarmVolume != VolumeMedium {
		t.Errorf("volume changed to %q on rejected input", c.AlarmVolume)
	}
	if _, err := c.SetAlarmVolume(VolumeLoud); err != nil || c.AlarmVolume != VolumeLoud {
		t.Errorf("SetAlarmVolume(Loud) = %v, volume %q", err, c.AlarmVolume)
	}
}

func TestCarImpactRequiresArmedShockSensor(t *testing.T) {
	c := NewCarAlarm("C1", "Гараж", testRand())

	if events := c.SimulateImpact(); events != nil {
		t.Errorf("impact while disarmed = %v", events)
	}

	c.Arm()
	c.ToggleShockSensor() // off
	if events := c.SimulateImpact(); events != nil {
		t.Errorf("impact with sensor off = %v", events)
	}

	c.ToggleShockSensor() // back on
	events := c.SimulateImpact()
	if len(events) != 2 || events[1].Type != audit.EventImpactDetected {
		t.Errorf("impact events = %v", events)
	}
}

func TestHomeIntrusionRequiresArmed(t *testing.T) {
	h := NewHomeAlarm("H1", "Кухня", testRand())

	if events := h.SimulateIntrusion(); events != nil {
		t.Errorf("intrusion while disarmed = %v", events)
	}

	h.Arm()
	events := h.SimulateIntrusion()
	if len(events) != 2 || events[1].Type != audit.EventIntrusionDetected {
		t.Errorf("intrusion events = %v", events)
	}
}

func TestSimulateEmergencyBuildsDTO(t *testing.T) {
	c := NewCarAlarm("C1", "Гараж", testRand())

	dto, ev := c.SimulateEmergency()
	if dto.SystemID != "C1" || dto.SystemType != TypeCarAlarm {
		t.Errorf("dto = %+v", dto)
	}
	if !dto.RequiresResponse || dto.Description == "" {
		t.Errorf("dto = %+v", dto)
	}
	if ev.Type != audit.EventEmergencySimulated || ev.Detail != dto.Description {
		t.Errorf("event = %+v", ev)
	}
}

func TestSubjectMirrorsHeader(t *testing.T) {
	l := NewBiometricLock("L1", "Офис", testRand())
	l.Arm()

	s := l.Subject()
	want := audit.Subject{
		SystemID:       "L1",
		Location:       "Офис",
		SecurityMode:   ModeOff,
		Armed:          true,
		BatteryLevel:   l.BatteryLevel,
		SignalStrength: l.SignalStrength,
	}
	if s != want {
		t.Errorf("Subject() = %+v, want %+v", s, want)
	}
}
