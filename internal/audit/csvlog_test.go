package audit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func openTemp(t *testing.T) *CSVLog {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.csv"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpenWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.csv")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	l.LogSystemEvent(EventServerStarted, "")
	l.Close()

	// Reopen must not repeat the header.
	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	l.LogSystemEvent(EventServerStopped, "")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), data)
	}
	if lines[0] != Header {
		t.Errorf("first line = %q", lines[0])
	}
	if strings.Count(string(data), "timestamp,") != 1 {
		t.Error("header written more than once")
	}
}

func TestRowFormat(t *testing.T) {
	l := openTemp(t)
	l.LogEvent(Subject{
		SystemID:       "H1",
		Location:       "Кухня",
		SecurityMode:   "Дома",
		Armed:          true,
		BatteryLevel:   85,
		SignalStrength: 4,
	}, EventSystemArmed, "")

	rows, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}

	fields := strings.Split(rows[0], ",")
	if len(fields) != 9 {
		t.Fatalf("row %q has %d fields, want 9", rows[0], len(fields))
	}
	want := []string{"H1", "Кухня", "Дома", "true", "85", "4", "SYSTEM_ARMED", "Система поставлена на охрану"}
	for i, w := range want {
		if fields[i+1] != w {
			t.Errorf("field %d = %q, want %q", i+1, fields[i+1], w)
		}
	}
}

func TestSystemRowColumns(t *testing.T) {
	l := openTemp(t)
	l.LogSystemEvent(EventClientConnected, "127.0.0.1:9999")

	rows, err := l.Recent(1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	fields := strings.Split(rows[0], ",")
	if fields[1] != "SYSTEM" || fields[2] != "N/A" || fields[3] != "N/A" {
		t.Errorf("system row = %q", rows[0])
	}
	if fields[4] != "false" || fields[5] != "0" || fields[6] != "0" {
		t.Errorf("system row device columns = %q", rows[0])
	}
	if !strings.HasSuffix(rows[0], "Клиент подключен: 127.0.0.1:9999") {
		t.Errorf("description = %q", rows[0])
	}
}

func TestRecentReturnsTail(t *testing.T) {
	l := openTemp(t)
	for i := 0; i < 5; i++ {
		l.LogSystemState(Subject{SystemID: "H1", Location: "Кухня", SecurityMode: "Отключено"})
	}

	rows, err := l.Recent(3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Recent(3) = %d rows", len(rows))
	}

	rows, err = l.Recent(0)
	if err != nil || len(rows) != 0 {
		t.Errorf("Recent(0) = (%v, %v)", rows, err)
	}
}

func TestBySystemIDFilters(t *testing.T) {
	l := openTemp(t)
	l.LogSystemState(Subject{SystemID: "H1"})
	l.LogSystemState(Subject{SystemID: "C1"})
	l.LogSystemState(Subject{SystemID: "H1"})
	l.LogSystemEvent(EventInfo, "")

	rows, err := l.BySystemID("H1", 10)
	if err != nil {
		t.Fatalf("BySystemID() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("BySystemID(H1) = %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if !strings.HasPrefix(strings.SplitN(row, ",", 3)[1], "H1") {
			t.Errorf("row %q is not for H1", row)
		}
	}
}

func TestConcurrentWritesStayWellFormed(t *testing.T) {
	l := openTemp(t)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				l.LogEvent(Subject{SystemID: "SYS", Location: "Стенд"}, EventStateUpdate, "")
			}
		}(g)
	}
	wg.Wait()

	rows, err := l.Recent(200)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(rows) != 100 {
		t.Fatalf("rows = %d, want 100", len(rows))
	}
	for _, row := range rows {
		if got := len(strings.Split(row, ",")); got != 9 {
			t.Errorf("row %q has %d fields", row, got)
		}
	}
}

func TestLogIntervalRoundTrip(t *testing.T) {
	l := openTemp(t)
	if l.LogInterval() != defaultLogInterval {
		t.Errorf("default interval = %d", l.LogInterval())
	}
	l.SetLogInterval(45)
	if l.LogInterval() != 45 {
		t.Errorf("interval = %d, want 45", l.LogInterval())
	}
}

func TestWriteAfterCloseIsNoop(t *testing.T) {
	l := openTemp(t)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Must not panic.
	l.LogSystemEvent(EventInfo, "после закрытия")
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
