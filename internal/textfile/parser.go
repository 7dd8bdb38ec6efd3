// Package textfile reads and writes the persisted device file.
//
// The format is deliberately tolerant: each device is introduced by a
// [type] tag followed by an unordered run of properties. Property names
// are matched case-insensitively anywhere in the device region; the
// value runs from the end of the name (past any ':', '=' or whitespace
// delimiter) to the next recognized property name. Unknown names are
// ignored, missing properties keep constructor defaults.
package textfile

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/avolkov/sentryfleet/internal/device"
)

type propKind int

const (
	kindString propKind = iota
	kindInt
	kindBool
)

// tagPattern matches a [type] tag opening a device region.
var tagPattern = regexp.MustCompile(`\[([a-zA-Z]+)]`)

// intPattern matches integer literals inside a property value.
var intPattern = regexp.MustCompile(`-?\d+`)

// File tags for each device variant.
const (
	TagHomeAlarm     = "homealarmsystem"
	TagBiometricLock = "biometriclock"
	TagCarAlarm      = "caralarmsystem"
)

var tagToType = map[string]device.SystemType{
	TagHomeAlarm:     device.TypeHomeAlarm,
	TagBiometricLock: device.TypeBiometricLock,
	TagCarAlarm:      device.TypeCarAlarm,
}

var typeToTag = map[device.SystemType]string{
	device.TypeHomeAlarm:     TagHomeAlarm,
	device.TypeBiometricLock: TagBiometricLock,
	device.TypeCarAlarm:      TagCarAlarm,
}

// commonProps are recognized for every device type.
var commonProps = map[string]propKind{
	"id":             kindString,
	"location":       kindString,
	"securitymode":   kindString,
	"isarmed":        kindBool,
	"batterylevel":   kindInt,
	"signalstrength": kindInt,
}

// variantProps lists the additional recognized properties per tag.
var variantProps = map[string]map[string]propKind{
	TagHomeAlarm: {
		"doorsensorsactive":   kindBool,
		"windowsensorsactive": kindBool,
		"motionsensorsactive": kindBool,
		"sensitivitylevel":    kindInt,
		"silentmode":          kindBool,
		"alarmsound":          kindString,
	},
	TagBiometricLock: {
		"failedattempts":         kindInt,
		"fingerprintenabled":     kindBool,
		"facerecognitionenabled": kindBool,
		"lockstatus":             kindString,
		"autolockdelay":          kindInt,
	},
	TagCarAlarm: {
		"shocksensoractive":      kindBool,
		"tiltsensoractive":       kindBool,
		"glassbreaksensoractive": kindBool,
		"remotestartenabled":     kindBool,
		"alarmvolume":            kindString,
		"panicmodeduration":      kindInt,
	},
}

// propsFor returns the full recognized-property set for a tag.
func propsFor(tag string) map[string]propKind {
	props := make(map[string]propKind, len(commonProps)+len(variantProps[tag]))
	for name, kind := range commonProps {
		props[name] = kind
	}
	for name, kind := range variantProps[tag] {
		props[name] = kind
	}
	return props
}

// Stats tracks parse diagnostics.
type Stats struct {
	ObjectsFound      int
	PropertiesFound   int
	PropertiesMissing int
}

// Parser hydrates devices from the persisted text format.
// The injected random source seeds constructor defaults of new devices.
type Parser struct {
	rng *rand.Rand
}

// NewParser creates a parser. A nil rng falls back to a time-seeded
// source.
func NewParser(rng *rand.Rand) *Parser {
	return &Parser{rng: rng}
}

// ReadFile parses the file at path into device instances.
func (p *Parser) ReadFile(path string) ([]device.System, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening device file: %w", err)
	}
	defer f.Close()

	// Concatenate non-blank lines with a single space so properties may
	// span line breaks.
	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, Stats{}, fmt.Errorf("reading device file: %w", err)
	}

	systems, stats := p.parse(sb.String())
	return systems, stats, nil
}

// parse scans the flattened content for device regions and builds one
// device per recognized tag.
func (p *Parser) parse(content string) ([]device.System, Stats) {
	var systems []device.System
	var stats Stats

	matches := tagPattern.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		tag := strings.ToLower(content[m[2]:m[3]])
		regionStart := m[1]
		regionEnd := len(content)
		if i+1 < len(matches) {
			regionEnd = matches[i+1][0]
		}

		if _, ok := tagToType[tag]; !ok {
			continue
		}

		props := p.scanProperties(tag, content[regionStart:regionEnd], &stats)
		systems = append(systems, p.build(tag, props))
		stats.ObjectsFound++
	}

	return systems, stats
}

// scanProperties extracts every recognized property from a device region.
func (p *Parser) scanProperties(tag, region string, stats *Stats) map[string]any {
	recognized := propsFor(tag)
	lower := strings.ToLower(region)
	values := make(map[string]any)

	for name, kind := range recognized {
		idx := strings.Index(lower, name)
		if idx < 0 {
			continue
		}

		valueStart := idx + len(name)
		for valueStart < len(region) && isDelimiter(region[valueStart]) {
			valueStart++
		}
		if valueStart >= len(region) {
			continue
		}

		raw := extractValue(region, valueStart, recognized)
		if raw == "" {
			continue
		}

		if v, ok := coerce(kind, raw); ok {
			values[name] = v
			stats.PropertiesFound++
		} else {
			stats.PropertiesMissing++
		}
	}

	return values
}

func isDelimiter(c byte) bool {
	return c == ':' || c == '=' || c == ' ' || c == '\t'
}

// extractValue returns the substring from start to the earliest
// subsequent occurrence of any recognized property name.
func extractValue(region string, start int, recognized map[string]propKind) string {
	rest := region[start:]
	lower := strings.ToLower(rest)

	end := len(rest)
	for name := range recognized {
		if i := strings.Index(lower, name); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(rest[:end])
}

// coerce converts a raw property value to its declared type.
// Integers take the last integer literal in the value; booleans match a
// contained "true" or "false".
func coerce(kind propKind, raw string) (any, bool) {
	switch kind {
	case kindInt:
		literals := intPattern.FindAllString(raw, -1)
		if len(literals) == 0 {
			return nil, false
		}
		n, err := strconv.Atoi(literals[len(literals)-1])
		if err != nil {
			return nil, false
		}
		return n, true
	case kindBool:
		lower := strings.ToLower(raw)
		if strings.Contains(lower, "true") {
			return true, true
		}
		if strings.Contains(lower, "false") {
			return false, true
		}
		return nil, false
	default:
		return strings.Trim(raw, `"`), true
	}
}

// build constructs a device from scanned properties, applying them in a
// fixed order: identity, levels, mode, armed state, then variant fields.
func (p *Parser) build(tag string, props map[string]any) device.System {
	id, _ := props["id"].(string)
	if id == "" {
		id = defaultID(tag)
	}
	location, _ := props["location"].(string)
	if location == "" {
		location = "Неизвестное местоположение"
	}

	var sys device.System
	switch tag {
	case TagBiometricLock:
		sys = p.buildLock(id, location, props)
	case TagCarAlarm:
		sys = p.buildCar(id, location, props)
	default:
		sys = p.buildHome(id, location, props)
	}

	b := sys.Common()
	if v, ok := props["batterylevel"].(int); ok {
		b.SetBatteryLevel(v)
	}
	if v, ok := props["signalstrength"].(int); ok {
		b.SetSignalStrength(v)
	}
	if v, ok := props["securitymode"].(string); ok {
		if _, err := b.SetSecurityMode(v); err != nil {
			b.SecurityMode = device.ModeOff
		}
	}
	if v, ok := props["isarmed"].(bool); ok && v {
		b.Arm()
	}

	return sys
}

func (p *Parser) buildHome(id, location string, props map[string]any) *device.HomeAlarm {
	h := device.NewHomeAlarm(id, location, p.rng)
	if v, ok := props["doorsensorsactive"].(bool); ok {
		h.DoorSensorsActive = v
	}
	if v, ok := props["windowsensorsactive"].(bool); ok {
		h.WindowSensorsActive = v
	}
	if v, ok := props["motionsensorsactive"].(bool); ok {
		h.MotionSensorsActive = v
	}
	if v, ok := props["sensitivitylevel"].(int); ok && v >= 1 && v <= 5 {
		h.SensitivityLevel = v
	}
	if v, ok := props["silentmode"].(bool); ok {
		h.SetSilentMode(v)
	}
	if v, ok := props["alarmsound"].(string); ok && v != "" {
		h.AlarmSound = v
	}
	return h
}

func (p *Parser) buildLock(id, location string, props map[string]any) *device.BiometricLock {
	l := device.NewBiometricLock(id, location, p.rng)
	if v, ok := props["failedattempts"].(int); ok && v >= 0 {
		l.FailedAttempts = v
	}
	if v, ok := props["fingerprintenabled"].(bool); ok {
		l.FingerprintEnabled = v
	}
	if v, ok := props["facerecognitionenabled"].(bool); ok {
		l.FaceRecognitionEnabled = v
	}
	if v, ok := props["lockstatus"].(string); ok && v != "" {
		l.LockStatus = v
	}
	if v, ok := props["autolockdelay"].(int); ok && v > 0 {
		l.AutoLockDelay = v
	}
	return l
}

func (p *Parser) buildCar(id, location string, props map[string]any) *device.CarAlarm {
	c := device.NewCarAlarm(id, location, p.rng)
	if v, ok := props["shocksensoractive"].(bool); ok {
		c.ShockSensorActive = v
	}
	if v, ok := props["tiltsensoractive"].(bool); ok {
		c.TiltSensorActive = v
	}
	if v, ok := props["glassbreaksensoractive"].(bool); ok {
		c.GlassBreakSensorActive = v
	}
	if v, ok := props["remotestartenabled"].(bool); ok {
		c.RemoteStartEnabled = v
	}
	if v, ok := props["alarmvolume"].(string); ok {
		if _, err := c.SetAlarmVolume(v); err != nil {
			c.AlarmVolume = device.VolumeMedium
		}
	}
	if v, ok := props["panicmodeduration"].(int); ok && v > 0 {
		c.PanicModeDuration = v
	}
	return c
}

// defaultID generates a stable-format identifier for devices persisted
// without one.
func defaultID(tag string) string {
	prefix := map[string]string{
		TagHomeAlarm:     "DEFAULT_HOME_",
		TagBiometricLock: "DEFAULT_LOCK_",
		TagCarAlarm:      "DEFAULT_CAR_",
	}[tag]
	return prefix + uuid.NewString()[:8]
}
