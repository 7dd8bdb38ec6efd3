package textfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/avolkov/sentryfleet/internal/device"
)

// WriteFile persists systems to path, one device per line in
// "[type] field=value ..." form readable by ReadFile.
func WriteFile(path string, systems []device.System) error {
	var sb strings.Builder
	for _, sys := range systems {
		sb.WriteString(Format(sys))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing device file: %w", err)
	}
	return nil
}

// Format renders a single device as one line of the text format.
func Format(sys device.System) string {
	b := sys.Common()
	tag := typeToTag[b.SystemType]

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", tag)
	writeProp(&sb, "id", b.SystemID)
	writeProp(&sb, "location", b.Location)
	writeProp(&sb, "securityMode", b.SecurityMode)
	writeProp(&sb, "isArmed", b.IsArmed)
	writeProp(&sb, "batteryLevel", b.BatteryLevel)
	writeProp(&sb, "signalStrength", b.SignalStrength)

	switch s := sys.(type) {
	case *device.HomeAlarm:
		writeProp(&sb, "doorSensorsActive", s.DoorSensorsActive)
		writeProp(&sb, "windowSensorsActive", s.WindowSensorsActive)
		writeProp(&sb, "motionSensorsActive", s.MotionSensorsActive)
		writeProp(&sb, "sensitivityLevel", s.SensitivityLevel)
		writeProp(&sb, "silentMode", s.SilentMode)
		writeProp(&sb, "alarmSound", s.AlarmSound)
	case *device.BiometricLock:
		writeProp(&sb, "failedAttempts", s.FailedAttempts)
		writeProp(&sb, "fingerprintEnabled", s.FingerprintEnabled)
		writeProp(&sb, "faceRecognitionEnabled", s.FaceRecognitionEnabled)
		writeProp(&sb, "lockStatus", s.LockStatus)
		writeProp(&sb, "autoLockDelay", s.AutoLockDelay)
	case *device.CarAlarm:
		writeProp(&sb, "shockSensorActive", s.ShockSensorActive)
		writeProp(&sb, "tiltSensorActive", s.TiltSensorActive)
		writeProp(&sb, "glassBreakSensorActive", s.GlassBreakSensorActive)
		writeProp(&sb, "remoteStartEnabled", s.RemoteStartEnabled)
		writeProp(&sb, "alarmVolume", s.AlarmVolume)
		writeProp(&sb, "panicModeDuration", s.PanicModeDuration)
	}
	return sb.String()
}

// writeProp appends one "name=value" token. Empty strings are skipped:
// the format has no way to carry a blank value, so the property is
// omitted and the reader's default applies on reload.
func writeProp(sb *strings.Builder, name string, value any) {
	if s, ok := value.(string); ok && s == "" {
		return
	}
	fmt.Fprintf(sb, " %s=%v", name, value)
}
