// Package registry holds the server-side collection of security systems
// and is the single place where device state changes turn into audit
// rows. Devices report state transitions as events; the controller
// records them against the owning system's snapshot.
package registry

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/device"
	"github.com/avolkov/sentryfleet/internal/textfile"
)

// Logger defines the logging interface used by the Controller.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Auditor receives one row per recorded event. *audit.CSVLog is the
// production implementation.
type Auditor interface {
	LogEvent(s audit.Subject, et audit.EventType, detail string)
	LogSystemEvent(et audit.EventType, detail string)
	LogSystemState(s audit.Subject)
}

// Mirror receives a copy of every device-scoped event, e.g. for
// publishing to a message broker. Mirrors must not block.
type Mirror interface {
	MirrorEvent(s audit.Subject, et audit.EventType, detail string)
}

// Recorder persists device events into the state history store.
type Recorder interface {
	RecordEvent(s audit.Subject, et audit.EventType, detail string) error
}

// Controller manages the ordered collection of security systems.
//
// A single mutex guards the system slice and the current file name;
// every operation, including file load and save, runs under it so the
// collection never changes mid-persistence.
//
// All public methods are thread-safe.
type Controller struct {
	mu       sync.Mutex
	systems  []device.System
	fileName string

	auditLog Auditor
	logger   Logger
	mirror   Mirror
	recorder Recorder
	parser   *textfile.Parser
	rng      *rand.Rand
}

// NewController creates a controller recording events to auditLog.
// The random source seeds devices built from files and JSON payloads;
// nil falls back to a time-seeded source.
func NewController(auditLog Auditor, rng *rand.Rand) *Controller {
	return &Controller{
		auditLog: auditLog,
		logger:   noopLogger{},
		parser:   textfile.NewParser(rng),
		rng:      rng,
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMirror installs an event mirror. Pass nil to disable.
func (c *Controller) SetMirror(m Mirror) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = m
}

// SetRecorder installs a state history recorder. Pass nil to disable.
func (c *Controller) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// Rand exposes the controller's random source for device construction.
func (c *Controller) Rand() *rand.Rand {
	return c.rng
}

// record fans one device event out to the audit log and the optional
// mirror and recorder. Callers hold c.mu.
func (c *Controller) record(s audit.Subject, ev device.Event) {
	c.auditLog.LogEvent(s, ev.Type, ev.Detail)
	if c.mirror != nil {
		c.mirror.MirrorEvent(s, ev.Type, ev.Detail)
	}
	if c.recorder != nil {
		if err := c.recorder.RecordEvent(s, ev.Type, ev.Detail); err != nil {
			c.logger.Error("recording event history", "system_id", s.SystemID, "error", err)
		}
	}
}

// Add registers a system. The identifier must be unique across the
// collection.
func (c *Controller) Add(sys device.System) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := sys.Common()
	for _, existing := range c.systems {
		if existing.Common().SystemID == b.SystemID {
			c.auditLog.LogSystemEvent(audit.EventWarning,
				fmt.Sprintf("Система с идентификатором %s уже зарегистрирована", b.SystemID))
			return ErrDuplicateSystemID
		}
	}

	c.systems = append(c.systems, sys)
	c.record(b.Subject(), device.Event{Type: audit.EventSystemAdded, Detail: string(b.SystemType)})
	c.logger.Info("system added", "system_id", b.SystemID, "type", b.SystemType)
	return nil
}

// Count returns the number of registered systems.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.systems)
}

// ListAll returns a snapshot of the system slice. The systems
// themselves are shared; callers must not mutate them directly.
func (c *Controller) ListAll() []device.System {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]device.System, len(c.systems))
	copy(out, c.systems)
	return out
}

// Snapshot returns the current state of every registered system as audit
// subjects. Unlike ListAll the result is fully detached from the live
// devices, so it stays valid while other goroutines mutate them.
func (c *Controller) Snapshot() []audit.Subject {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.Subject, 0, len(c.systems))
	for _, sys := range c.systems {
		out = append(out, sys.Common().Subject())
	}
	return out
}

// GetByIndex returns the system at the given position.
func (c *Controller) GetByIndex(index int) (device.System, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.systems) {
		c.warnBadIndex(index)
		return nil, ErrIndexOutOfRange
	}
	return c.systems[index], nil
}

// GetByID returns the system with the given identifier.
func (c *Controller) GetByID(id string) (device.System, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sys := range c.systems {
		if sys.Common().SystemID == id {
			return sys, nil
		}
	}
	return nil, ErrSystemNotFound
}

// RemoveByIndex deregisters and returns the system at the given
// position. Remaining systems shift down, preserving order.
func (c *Controller) RemoveByIndex(index int) (device.System, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.systems) {
		c.warnBadIndex(index)
		return nil, ErrIndexOutOfRange
	}
	return c.removeAt(index), nil
}

// RemoveByID deregisters and returns the system with the given
// identifier.
func (c *Controller) RemoveByID(id string) (device.System, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sys := range c.systems {
		if sys.Common().SystemID == id {
			return c.removeAt(i), nil
		}
	}
	return nil, ErrSystemNotFound
}

// removeAt unlinks the system at i. Callers hold c.mu and have bounds
// checked.
func (c *Controller) removeAt(i int) device.System {
	sys := c.systems[i]
	c.systems = append(c.systems[:i], c.systems[i+1:]...)
	b := sys.Common()
	c.record(b.Subject(), device.Event{Type: audit.EventSystemRemoved, Detail: string(b.SystemType)})
	c.logger.Info("system removed", "system_id", b.SystemID)
	return sys
}

func (c *Controller) warnBadIndex(index int) {
	c.auditLog.LogSystemEvent(audit.EventWarning,
		fmt.Sprintf("Некорректный индекс системы: %d", index))
	c.logger.Warn("index out of range", "index", index, "count", len(c.systems))
}

// withSystem runs fn against the system at index under the lock.
func (c *Controller) withSystem(index int, fn func(device.System)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.systems) {
		c.warnBadIndex(index)
		return ErrIndexOutOfRange
	}
	fn(c.systems[index])
	return nil
}

// Arm arms the system at index. Returns false when it was already
// armed; no event is recorded in that case.
func (c *Controller) Arm(index int) (bool, error) {
	var changed bool
	err := c.withSystem(index, func(sys device.System) {
		ev, ok := sys.Common().Arm()
		if ok {
			c.record(sys.Common().Subject(), ev)
		}
		changed = ok
	})
	return changed, err
}

// Disarm disarms the system at index. Returns false when it was
// already disarmed.
func (c *Controller) Disarm(index int) (bool, error) {
	var changed bool
	err := c.withSystem(index, func(sys device.System) {
		ev, ok := sys.Common().Disarm()
		if ok {
			c.record(sys.Common().Subject(), ev)
		}
		changed = ok
	})
	return changed, err
}

// SetSecurityMode switches the system at index to the given mode.
func (c *Controller) SetSecurityMode(index int, mode string) error {
	var modeErr error
	err := c.withSystem(index, func(sys device.System) {
		ev, err := sys.Common().SetSecurityMode(mode)
		if err != nil {
			modeErr = err
			return
		}
		c.record(sys.Common().Subject(), ev)
	})
	if err != nil {
		return err
	}
	return modeErr
}

// PerformSelfTest runs the self test of the system at index.
func (c *Controller) PerformSelfTest(index int) (bool, error) {
	var passed bool
	err := c.withSystem(index, func(sys device.System) {
		ok, ev := sys.PerformSelfTest()
		c.record(sys.Common().Subject(), ev)
		passed = ok
	})
	return passed, err
}

// SimulateEmergency triggers a random emergency on the system at index.
func (c *Controller) SimulateEmergency(index int) (device.EmergencyEvent, error) {
	var emergency device.EmergencyEvent
	err := c.withSystem(index, func(sys device.System) {
		e, ev := sys.SimulateEmergency()
		c.record(sys.Common().Subject(), ev)
		emergency = e
	})
	return emergency, err
}

// StatusReport returns the full state snapshot of the system at index.
func (c *Controller) StatusReport(index int) (any, error) {
	var report any
	err := c.withSystem(index, func(sys device.System) {
		report = sys.StatusReport()
	})
	return report, err
}

// CalibrateSensors calibrates the system at index.
func (c *Controller) CalibrateSensors(index int) error {
	return c.withSystem(index, func(sys device.System) {
		ev := sys.CalibrateSensors()
		c.record(sys.Common().Subject(), ev)
	})
}

// CheckConnectivity probes the system at index.
func (c *Controller) CheckConnectivity(index int) (bool, error) {
	var online bool
	err := c.withSystem(index, func(sys device.System) {
		ok, ev := sys.CheckConnectivity()
		c.record(sys.Common().Subject(), ev)
		online = ok
	})
	return online, err
}

// LoadFromFile replaces or extends the collection from the text file at
// path. When appendMode is false the current collection is cleared
// first. Systems whose identifier is already registered are skipped.
// The path becomes the current file name on success.
func (c *Controller) LoadFromFile(path string, appendMode bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loaded, stats, err := c.parser.ReadFile(path)
	if err != nil {
		c.auditLog.LogSystemEvent(audit.EventError,
			fmt.Sprintf("Ошибка загрузки файла %s: %v", path, err))
		c.logger.Error("loading systems file", "path", path, "error", err)
		return 0, err
	}

	if !appendMode {
		c.systems = nil
	}

	known := make(map[string]bool, len(c.systems))
	for _, sys := range c.systems {
		known[sys.Common().SystemID] = true
	}

	added := 0
	for _, sys := range loaded {
		b := sys.Common()
		if known[b.SystemID] {
			c.auditLog.LogSystemEvent(audit.EventWarning,
				fmt.Sprintf("Система с идентификатором %s уже зарегистрирована", b.SystemID))
			continue
		}
		known[b.SystemID] = true
		c.systems = append(c.systems, sys)
		c.record(b.Subject(), device.Event{Type: audit.EventSystemLoaded, Detail: path})
		added++
	}

	c.fileName = path
	c.auditLog.LogSystemEvent(audit.EventFileLoaded,
		fmt.Sprintf("Загружено систем: %d из файла %s", added, path))
	c.logger.Info("systems loaded",
		"path", path,
		"added", added,
		"objects", stats.ObjectsFound,
		"properties", stats.PropertiesFound,
		"malformed", stats.PropertiesMissing)
	return added, nil
}

// SaveToFile persists the collection to the text file at path, which
// becomes the current file name on success.
func (c *Controller) SaveToFile(path string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := textfile.WriteFile(path, c.systems); err != nil {
		c.auditLog.LogSystemEvent(audit.EventError,
			fmt.Sprintf("Ошибка сохранения файла %s: %v", path, err))
		c.logger.Error("saving systems file", "path", path, "error", err)
		return 0, err
	}

	c.fileName = path
	c.auditLog.LogSystemEvent(audit.EventFileSaved,
		fmt.Sprintf("Сохранено систем: %d в файл %s", len(c.systems), path))
	c.logger.Info("systems saved", "path", path, "count", len(c.systems))
	return len(c.systems), nil
}

// SetFileName sets the current persistence file name without touching
// the collection.
func (c *Controller) SetFileName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fileName = name
	c.auditLog.LogSystemEvent(audit.EventConfigChanged, "Файл данных: "+name)
}

// FileName returns the current persistence file name.
func (c *Controller) FileName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fileName
}

// LogAllSystemsState writes one state row per registered system and a
// summary row, returning the number of systems logged.
func (c *Controller) LogAllSystemsState() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sys := range c.systems {
		c.auditLog.LogSystemState(sys.Common().Subject())
	}
	c.auditLog.LogSystemEvent(audit.EventInfo,
		fmt.Sprintf("Зафиксировано состояние систем: %d", len(c.systems)))
	return len(c.systems)
}
