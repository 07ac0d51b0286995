package service

import (
	"context"
	"sync"
	"testing"
	"time"

	pump "pump_control"
)

// fakeDevice is a scriptable stand-in for the remote control endpoint. All
// recorded calls are mutex-guarded because the dispatcher and the coalesced
// threshold save issue commands from background goroutines.
type fakeDevice struct {
	mu sync.Mutex

	statusOn  bool
	statusErr error
	setErr    error
	pulseErr  error
	schedErr  error
	threshErr error
	verifyErr error

	setCalls    []bool
	pulseCalls  []time.Duration
	schedPushes [][]pump.ScheduleWindow
	threshPush  []pump.Thresholds
	tokens      []string

	// When non-nil, PushThresholds blocks until a value is received, letting
	// tests hold a save in flight.
	threshGate chan struct{}
}

func (f *fakeDevice) Status(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusOn, f.statusErr
}

func (f *fakeDevice) SetPump(ctx context.Context, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, on)
	return f.setErr
}

func (f *fakeDevice) Pulse(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulseCalls = append(f.pulseCalls, d)
	return f.pulseErr
}

func (f *fakeDevice) PushSchedules(ctx context.Context, ws []pump.ScheduleWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedPushes = append(f.schedPushes, ws)
	return f.schedErr
}

func (f *fakeDevice) PushThresholds(ctx context.Context, t pump.Thresholds) error {
	f.mu.Lock()
	gate := f.threshGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshPush = append(f.threshPush, t.Snapshot())
	return f.threshErr
}

func (f *fakeDevice) VerifyToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f.verifyErr
}

func (f *fakeDevice) setCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.setCalls)
}

func (f *fakeDevice) lastSetCall() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.setCalls) == 0 {
		return false, false
	}
	return f.setCalls[len(f.setCalls)-1], true
}

func (f *fakeDevice) thresholdPushes() []pump.Thresholds {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pump.Thresholds, len(f.threshPush))
	copy(out, f.threshPush)
	return out
}

// fakeSettings is an in-memory stand-in for the local key-value store.
type fakeSettings struct {
	mu sync.Mutex

	mode         pump.Mode
	schedules    []pump.ScheduleWindow
	hasSchedules bool
	thresholds   pump.Thresholds

	saveModeErr  error
	saveSchedErr error
	loadErr      error
}

func (f *fakeSettings) SaveMode(ctx context.Context, m pump.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveModeErr != nil {
		return f.saveModeErr
	}
	f.mode = m
	return nil
}

func (f *fakeSettings) LoadMode(ctx context.Context) (pump.Mode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode, f.loadErr
}

func (f *fakeSettings) SaveSchedules(ctx context.Context, ws []pump.ScheduleWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveSchedErr != nil {
		return f.saveSchedErr
	}
	f.schedules = ws
	f.hasSchedules = true
	return nil
}

func (f *fakeSettings) LoadSchedules(ctx context.Context) ([]pump.ScheduleWindow, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedules, f.hasSchedules, f.loadErr
}

func (f *fakeSettings) SaveThresholds(ctx context.Context, t pump.Thresholds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thresholds = t.Snapshot()
	return nil
}

func (f *fakeSettings) LoadThresholds(ctx context.Context) (pump.Thresholds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.thresholds == nil {
		return nil, nil
	}
	return f.thresholds.Snapshot(), nil
}

// fakeEvents records appended control events in memory.
type fakeEvents struct {
	mu     sync.Mutex
	events []pump.ControlEvent
	listed []pump.ControlEvent

	lastFrom time.Time
	lastTo   time.Time
	lastType string
	listErr  error
}

func (f *fakeEvents) Append(ctx context.Context, e pump.ControlEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) List(ctx context.Context, from, to time.Time, typ string) ([]pump.ControlEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFrom, f.lastTo, f.lastType = from, to, typ
	return f.listed, f.listErr
}

func (f *fakeEvents) byType(typ string) []pump.ControlEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []pump.ControlEvent
	for _, e := range f.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeNotifier records operator alerts.
type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (f *fakeNotifier) Alert(title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) Alertf(title, format string, args ...any) {
	f.Alert(title, format)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.titles)
}

// waitFor polls cond until it holds or the deadline passes. Used for effects
// that happen on background goroutines (pulse cancellation, coalesced saves).
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func mustWindow(t *testing.T, from, to string) pump.ScheduleWindow {
	t.Helper()
	start, err := pump.ParseClock(from)
	if err != nil {
		t.Fatalf("parse %q: %v", from, err)
	}
	end, err := pump.ParseClock(to)
	if err != nil {
		t.Fatalf("parse %q: %v", to, err)
	}
	return pump.ScheduleWindow{Start: start, End: end}
}
