package textfile

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avolkov/sentryfleet/internal/device"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "systems.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestReadFileHomeAlarmPartialProperties(t *testing.T) {
	path := writeTemp(t, `[homealarmsystem] id H42 location "Kitchen" batterylevel 77 silentmode true`)

	systems, stats, err := NewParser(testRand()).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(systems) != 1 {
		t.Fatalf("got %d systems, want 1", len(systems))
	}
	if stats.ObjectsFound != 1 {
		t.Errorf("ObjectsFound = %d, want 1", stats.ObjectsFound)
	}

	h, ok := systems[0].(*device.HomeAlarm)
	if !ok {
		t.Fatalf("got %T, want *device.HomeAlarm", systems[0])
	}
	if h.SystemID != "H42" {
		t.Errorf("SystemID = %q, want H42", h.SystemID)
	}
	if h.Location != "Kitchen" {
		t.Errorf("Location = %q, want Kitchen", h.Location)
	}
	if h.BatteryLevel != 77 {
		t.Errorf("BatteryLevel = %d, want 77", h.BatteryLevel)
	}
	if !h.SilentMode {
		t.Error("SilentMode = false, want true")
	}
	if h.AlarmSound != device.SoundSilent {
		t.Errorf("AlarmSound = %q, want %q", h.AlarmSound, device.SoundSilent)
	}
	// Unspecified properties keep constructor defaults.
	if !h.DoorSensorsActive || h.SensitivityLevel != 3 {
		t.Errorf("defaults not preserved: doors=%t sensitivity=%d",
			h.DoorSensorsActive, h.SensitivityLevel)
	}
	if h.SecurityMode != device.ModeOff {
		t.Errorf("SecurityMode = %q, want %q", h.SecurityMode, device.ModeOff)
	}
}

func TestReadFilePropertiesSpanLines(t *testing.T) {
	path := writeTemp(t, "[biometriclock]\nid: L7\n\nlocation: Front door\nlockStatus: Заблокирован\nfailedAttempts: 2\n")

	systems, _, err := NewParser(testRand()).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(systems) != 1 {
		t.Fatalf("got %d systems, want 1", len(systems))
	}

	l := systems[0].(*device.BiometricLock)
	if l.SystemID != "L7" {
		t.Errorf("SystemID = %q, want L7", l.SystemID)
	}
	if l.Location != "Front door" {
		t.Errorf("Location = %q, want Front door", l.Location)
	}
	if l.LockStatus != device.LockStatusLocked {
		t.Errorf("LockStatus = %q, want %q", l.LockStatus, device.LockStatusLocked)
	}
	if l.FailedAttempts != 2 {
		t.Errorf("FailedAttempts = %d, want 2", l.FailedAttempts)
	}
}

func TestReadFileSkipsUnknownTags(t *testing.T) {
	path := writeTemp(t, "[thermostat] id T1\n[caralarmsystem] id C1 alarmVolume Громкая isArmed true\n")

	systems, stats, err := NewParser(testRand()).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(systems) != 1 {
		t.Fatalf("got %d systems, want 1", len(systems))
	}
	if stats.ObjectsFound != 1 {
		t.Errorf("ObjectsFound = %d, want 1", stats.ObjectsFound)
	}

	c := systems[0].(*device.CarAlarm)
	if c.SystemID != "C1" {
		t.Errorf("SystemID = %q, want C1", c.SystemID)
	}
	if c.AlarmVolume != device.VolumeLoud {
		t.Errorf("AlarmVolume = %q, want %q", c.AlarmVolume, device.VolumeLoud)
	}
	if !c.IsArmed {
		t.Error("IsArmed = false, want true")
	}
}

func TestReadFileDefaultsForMissingIdentity(t *testing.T) {
	path := writeTemp(t, "[homealarmsystem] batterylevel 50")

	systems, _, err := NewParser(testRand()).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	h := systems[0].(*device.HomeAlarm)
	if !strings.HasPrefix(h.SystemID, "DEFAULT_HOME_") {
		t.Errorf("SystemID = %q, want DEFAULT_HOME_ prefix", h.SystemID)
	}
	if h.Location != "Неизвестное местоположение" {
		t.Errorf("Location = %q, want default", h.Location)
	}
}

func TestReadFileMalformedValuesCoerced(t *testing.T) {
	path := writeTemp(t, "[caralarmsystem] id C9 batterylevel around 60 or so shockSensorActive surely true panicModeDuration none")

	systems, stats, err := NewParser(testRand()).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	c := systems[0].(*device.CarAlarm)
	if c.BatteryLevel != 60 {
		t.Errorf("BatteryLevel = %d, want 60 (last integer in value)", c.BatteryLevel)
	}
	if !c.ShockSensorActive {
		t.Error("ShockSensorActive = false, want true (contained literal)")
	}
	// "none" yields no integer: property counted as missing, default kept.
	if c.PanicModeDuration != 30 {
		t.Errorf("PanicModeDuration = %d, want default 30", c.PanicModeDuration)
	}
	if stats.PropertiesMissing == 0 {
		t.Error("PropertiesMissing = 0, want > 0")
	}
}

func TestReadFileInvalidModeFallsBack(t *testing.T) {
	path := writeTemp(t, "[homealarmsystem] id H1 securityMode Вечеринка")

	systems, _, err := NewParser(testRand()).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if mode := systems[0].Common().SecurityMode; mode != device.ModeOff {
		t.Errorf("SecurityMode = %q, want %q", mode, device.ModeOff)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, _, err := NewParser(testRand()).ReadFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("ReadFile() error = nil, want error for missing file")
	}
}

func TestWriteFileEmptyLocationOmitted(t *testing.T) {
	rng := testRand()

	home := device.NewHomeAlarm("H1", "", rng)

	line := Format(home)
	if strings.Contains(line, "location=") {
		t.Fatalf("Format() = %q, want no location property", line)
	}

	path := filepath.Join(t.TempDir(), "systems.txt")
	if err := WriteFile(path, []device.System{home}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	systems, _, err := NewParser(rng).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(systems) != 1 {
		t.Fatalf("got %d systems, want 1", len(systems))
	}
	if loc := systems[0].Common().Location; loc != "Неизвестное местоположение" {
		t.Errorf("Location = %q, want default", loc)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	rng := testRand()

	home := device.NewHomeAlarm("H1", "Коридор", rng)
	home.SetSilentMode(true)
	home.SensitivityLevel = 5
	home.Arm()

	lock := device.NewBiometricLock("L1", "Офис", rng)
	lock.LockStatus = device.LockStatusLocked
	lock.FailedAttempts = 1
	lock.AutoLockDelay = 45

	car := device.NewCarAlarm("C1", "Парковка", rng)
	car.SetAlarmVolume(device.VolumeQuiet)
	car.RemoteStartEnabled = true

	path := filepath.Join(t.TempDir(), "systems.txt")
	if err := WriteFile(path, []device.System{home, lock, car}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	systems, stats, err := NewParser(rng).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(systems) != 3 {
		t.Fatalf("got %d systems, want 3", len(systems))
	}
	if stats.ObjectsFound != 3 {
		t.Errorf("ObjectsFound = %d, want 3", stats.ObjectsFound)
	}

	h := systems[0].(*device.HomeAlarm)
	if h.SystemID != "H1" || !h.SilentMode || h.SensitivityLevel != 5 || !h.IsArmed {
		t.Errorf("home round trip mismatch: %+v", h)
	}
	if h.AlarmSound != device.SoundSilent {
		t.Errorf("AlarmSound = %q, want %q", h.AlarmSound, device.SoundSilent)
	}

	l := systems[1].(*device.BiometricLock)
	if l.SystemID != "L1" || l.LockStatus != device.LockStatusLocked ||
		l.FailedAttempts != 1 || l.AutoLockDelay != 45 {
		t.Errorf("lock round trip mismatch: %+v", l)
	}

	c := systems[2].(*device.CarAlarm)
	if c.SystemID != "C1" || c.AlarmVolume != device.VolumeQuiet || !c.RemoteStartEnabled {
		t.Errorf("car round trip mismatch: %+v", c)
	}
}
