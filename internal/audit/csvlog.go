// Package audit provides the append-only CSV audit trail for security
// device events, plus the fixed event taxonomy.
package audit

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Header is the fixed column order of the audit CSV file.
const Header = "timestamp,system_id,location,security_mode,is_armed,battery_level,signal_strength,event_type,event_description"

// timestampLayout is the ISO-8601 local-time format used for audit rows.
const timestampLayout = "2006-01-02T15:04:05"

// defaultLogInterval is the initial periodic-logging hint in seconds.
const defaultLogInterval = 10

const dirPermissions = 0750

// Subject carries the device columns of an audit row.
// System-level rows use the zero value with SystemID "SYSTEM".
type Subject struct {
	SystemID       string
	Location       string
	SecurityMode   string
	Armed          bool
	BatteryLevel   int
	SignalStrength int
}

// Logger is the interface used to report best-effort write failures.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// CSVLog is an append-only, flushed-per-write CSV event sink.
//
// Writes are mutually exclusive; back-read queries open a separate read
// handle and may run concurrently with writers. Write failures are
// reported through the logger and otherwise swallowed: the audit log is
// best-effort and must never take the server down.
type CSVLog struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	path string

	interval   int
	intervalMu sync.RWMutex

	logger Logger
}

// Open opens (or creates) the audit log at path for appending.
// A header line is written only when the file is newly created.
func Open(path string) (*CSVLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("stat audit log: %w", err)
	}

	l := &CSVLog{
		file:     f,
		w:        csv.NewWriter(f),
		path:     path,
		interval: defaultLogInterval,
		logger:   noopLogger{},
	}

	if info.Size() == 0 {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			f.Close() //nolint:errcheck // best effort cleanup on error path
			return nil, fmt.Errorf("writing audit log header: %w", err)
		}
	}

	return l, nil
}

// SetLogger sets the logger used to report write failures.
func (l *CSVLog) SetLogger(logger Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

// Path returns the filesystem path of the audit log.
func (l *CSVLog) Path() string {
	return l.path
}

// LogEvent appends one row with all device columns filled.
// A non-empty detail is appended to the event description after ": ".
func (l *CSVLog) LogEvent(s Subject, et EventType, detail string) {
	l.write(s, et, detail)
}

// LogSystemEvent appends one row not tied to a device.
// The system_id column is "SYSTEM" and device columns are empty or zero.
func (l *CSVLog) LogSystemEvent(et EventType, detail string) {
	l.write(Subject{
		SystemID:     "SYSTEM",
		Location:     "N/A",
		SecurityMode: "N/A",
	}, et, detail)
}

// LogSystemState appends a STATE_UPDATE row for the device.
func (l *CSVLog) LogSystemState(s Subject) {
	l.LogEvent(s, EventStateUpdate, "")
}

func (l *CSVLog) write(s Subject, et EventType, detail string) {
	description := et.Description()
	if detail != "" {
		description += ": " + detail
	}

	record := []string{
		time.Now().Format(timestampLayout),
		s.SystemID,
		s.Location,
		s.SecurityMode,
		strconv.FormatBool(s.Armed),
		strconv.Itoa(s.BatteryLevel),
		strconv.Itoa(s.SignalStrength),
		string(et),
		description,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}
	if err := l.w.Write(record); err != nil {
		l.logger.Error("audit log write failed", "error", err)
		return
	}
	// Flush per write so a crash loses at most the in-flight row.
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.logger.Error("audit log flush failed", "error", err)
	}
}

// Recent returns the last n non-header lines of the log.
func (l *CSVLog) Recent(n int) ([]string, error) {
	return l.tail(n, func(string) bool { return true })
}

// BySystemID returns the last n non-header lines whose second CSV field
// equals id.
func (l *CSVLog) BySystemID(id string, n int) ([]string, error) {
	return l.tail(n, func(line string) bool {
		fields := strings.SplitN(line, ",", 3)
		return len(fields) >= 2 && fields[1] == id
	})
}

// tail reads the log through a separate handle so queries never block
// writers. The in-flight tail of a concurrent append may be invisible.
func (l *CSVLog) tail(n int, keep func(string) bool) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening audit log for reading: %w", err)
	}
	defer f.Close()

	var matched []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue // header
		}
		if line == "" || !keep(line) {
			continue
		}
		matched = append(matched, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	if len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	if matched == nil {
		matched = []string{}
	}
	return matched, nil
}

// SetLogInterval stores the periodic-logging hint in seconds.
// The logger itself is not periodic; the state logger consumes this.
func (l *CSVLog) SetLogInterval(seconds int) {
	l.intervalMu.Lock()
	defer l.intervalMu.Unlock()
	l.interval = seconds
}

// LogInterval returns the periodic-logging hint in seconds.
func (l *CSVLog) LogInterval() int {
	l.intervalMu.RLock()
	defer l.intervalMu.RUnlock()
	return l.interval
}

// Close flushes and closes the underlying file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	l.w.Flush()
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("closing audit log: %w", err)
	}
	return nil
}
