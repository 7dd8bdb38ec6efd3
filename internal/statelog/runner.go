// Package statelog periodically records the state of every registered
// security system.
//
// Each tick writes one state row per system to the audit log and, when a
// gauges sink is configured, pushes per-system gauges and a fleet summary
// to the time-series store. The tick interval follows the audit log's
// runtime-adjustable logging interval, so a SET_CSV_LOG_INTERVAL command
// takes effect on the next tick.
package statelog

import (
	"context"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/registry"
)

// Logger is the minimal logging interface the runner needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Gauges receives fleet telemetry on each tick. Implementations must not
// block; the runner calls them from its own goroutine on every interval.
type Gauges interface {
	WriteSystemGauges(s audit.Subject)
	WriteFleetSummary(total, armed int)
}

// IntervalSource reports the current logging interval in seconds.
// *audit.CSVLog satisfies this.
type IntervalSource interface {
	LogInterval() int
}

// Runner drives the periodic state logging loop.
type Runner struct {
	ctrl     *registry.Controller
	interval IntervalSource
	gauges   Gauges
	logger   Logger
}

// New creates a runner for the given controller. The interval source is
// consulted before every tick so runtime changes apply without restart.
func New(ctrl *registry.Controller, interval IntervalSource) *Runner {
	return &Runner{
		ctrl:     ctrl,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetGauges attaches an optional telemetry sink.
func (r *Runner) SetGauges(g Gauges) { r.gauges = g }

// SetLogger replaces the no-op logger.
func (r *Runner) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run blocks until ctx is cancelled, logging all system state on every
// interval. A non-positive interval pauses logging; the runner re-checks
// once per second so re-enabling does not require a restart.
func (r *Runner) Run(ctx context.Context) error {
	timer := time.NewTimer(r.nextWait())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if r.interval.LogInterval() > 0 {
				r.tick()
			}
			timer.Reset(r.nextWait())
		}
	}
}

// nextWait converts the current interval setting into a timer duration.
func (r *Runner) nextWait() time.Duration {
	seconds := r.interval.LogInterval()
	if seconds <= 0 {
		// Paused; poll for re-enable.
		return time.Second
	}
	return time.Duration(seconds) * time.Second
}

// tick logs the state of every system and pushes gauges if configured.
func (r *Runner) tick() {
	count := r.ctrl.LogAllSystemsState()
	r.logger.Debug("state logged", "systems", count)

	if r.gauges == nil {
		return
	}

	subjects := r.ctrl.Snapshot()
	armed := 0
	for _, s := range subjects {
		if s.Armed {
			armed++
		}
		r.gauges.WriteSystemGauges(s)
	}
	r.gauges.WriteFleetSummary(len(subjects), armed)
}
