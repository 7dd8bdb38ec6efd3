package statelog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/device"
	"github.com/avolkov/sentryfleet/internal/registry"
)

type fakeAuditor struct {
	stateRows int
}

func (f *fakeAuditor) LogEvent(audit.Subject, audit.EventType, string) {}
func (f *fakeAuditor) LogSystemEvent(audit.EventType, string)         {}
func (f *fakeAuditor) LogSystemState(audit.Subject)                   { f.stateRows++ }

type fakeInterval struct {
	seconds int
}

func (f *fakeInterval) LogInterval() int { return f.seconds }

type fakeGauges struct {
	systems   []audit.Subject
	summaries [][2]int
}

func (f *fakeGauges) WriteSystemGauges(s audit.Subject) {
	f.systems = append(f.systems, s)
}

func (f *fakeGauges) WriteFleetSummary(total, armed int) {
	f.summaries = append(f.summaries, [2]int{total, armed})
}

func newTestController(t *testing.T, auditor registry.Auditor) *registry.Controller {
	t.Helper()
	ctrl := registry.NewController(auditor, nil)
	if err := ctrl.Add(device.NewHomeAlarm("H1", "Кухня", ctrl.Rand())); err != nil {
		t.Fatalf("Add(H1) error = %v", err)
	}
	if err := ctrl.Add(device.NewCarAlarm("C1", "Гараж", ctrl.Rand())); err != nil {
		t.Fatalf("Add(C1) error = %v", err)
	}
	return ctrl
}

func TestTickLogsStateAndGauges(t *testing.T) {
	auditor := &fakeAuditor{}
	ctrl := newTestController(t, auditor)
	if _, err := ctrl.Arm(0); err != nil {
		t.Fatalf("Arm(0) error = %v", err)
	}

	gauges := &fakeGauges{}
	runner := New(ctrl, &fakeInterval{seconds: 10})
	runner.SetGauges(gauges)

	runner.tick()

	if auditor.stateRows != 2 {
		t.Errorf("state rows = %d, want 2", auditor.stateRows)
	}
	if len(gauges.systems) != 2 {
		t.Fatalf("gauge writes = %d, want 2", len(gauges.systems))
	}
	if gauges.systems[0].SystemID != "H1" || !gauges.systems[0].Armed {
		t.Errorf("first gauge = %+v, want armed H1", gauges.systems[0])
	}
	if len(gauges.summaries) != 1 || gauges.summaries[0] != [2]int{2, 1} {
		t.Errorf("fleet summary = %v, want [[2 1]]", gauges.summaries)
	}
}

func TestTickWithoutGauges(t *testing.T) {
	auditor := &fakeAuditor{}
	ctrl := newTestController(t, auditor)

	runner := New(ctrl, &fakeInterval{seconds: 10})
	runner.tick()

	if auditor.stateRows != 2 {
		t.Errorf("state rows = %d, want 2", auditor.stateRows)
	}
}

func TestNextWaitPausedPollsEverySecond(t *testing.T) {
	runner := New(registry.NewController(&fakeAuditor{}, nil), &fakeInterval{seconds: 0})

	if got := runner.nextWait(); got != time.Second {
		t.Errorf("nextWait() = %v, want 1s when paused", got)
	}

	runner.interval = &fakeInterval{seconds: 30}
	if got := runner.nextWait(); got != 30*time.Second {
		t.Errorf("nextWait() = %v, want 30s", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	auditor := &fakeAuditor{}
	ctrl := newTestController(t, auditor)
	runner := New(ctrl, &fakeInterval{seconds: 60})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
