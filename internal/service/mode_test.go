package service

import (
	"context"
	"sync"
	"testing"

	pump "pump_control"
)

type recordingCanceller struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingCanceller) CancelPulseForAutomatic() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingCanceller) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newModeService(mode pump.Mode) (*ModeService, *pumpState, *recordingCanceller, *fakeSettings, *fakeEvents) {
	state := newPumpState(mode)
	canceller := &recordingCanceller{}
	settings := &fakeSettings{}
	events := &fakeEvents{}
	return NewModeService(state, canceller, settings, events, nil), state, canceller, settings, events
}

func TestSwitchToAutomaticCancelsPulse(t *testing.T) {
	s, state, canceller, settings, events := newModeService(pump.ModeManual)

	if err := s.SwitchTo(context.Background(), pump.ModeAutomatic); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	if state.currentMode() != pump.ModeAutomatic {
		t.Errorf("mode = %q, want AUTOMATIC", state.currentMode())
	}
	if canceller.count() != 1 {
		t.Errorf("cancel calls = %d, want 1", canceller.count())
	}
	if settings.mode != pump.ModeAutomatic {
		t.Errorf("persisted mode = %q, want AUTOMATIC", settings.mode)
	}
	if got := len(events.byType(pump.EventModeChange)); got != 1 {
		t.Errorf("mode-change events = %d, want 1", got)
	}
}

func TestSwitchToManualNoCancel(t *testing.T) {
	s, state, canceller, _, _ := newModeService(pump.ModeAutomatic)

	if err := s.SwitchTo(context.Background(), pump.ModeManual); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	if state.currentMode() != pump.ModeManual {
		t.Errorf("mode = %q, want MANUAL", state.currentMode())
	}
	if canceller.count() != 0 {
		t.Errorf("cancel calls = %d, want 0 on AUTOMATIC->MANUAL", canceller.count())
	}
}

func TestSwitchToSameModeIsNoop(t *testing.T) {
	s, _, canceller, _, events := newModeService(pump.ModeAutomatic)

	if err := s.SwitchTo(context.Background(), pump.ModeAutomatic); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	if canceller.count() != 0 {
		t.Errorf("cancel calls = %d, want 0 for a no-op switch", canceller.count())
	}
	if got := len(events.byType(pump.EventModeChange)); got != 0 {
		t.Errorf("mode-change events = %d, want 0", got)
	}
}

func TestSwitchToInvalidMode(t *testing.T) {
	s, state, _, _, _ := newModeService(pump.ModeManual)

	if err := s.SwitchTo(context.Background(), pump.Mode("TURBO")); err == nil {
		t.Fatal("SwitchTo accepted an unknown mode")
	}
	if state.currentMode() != pump.ModeManual {
		t.Errorf("mode = %q, want unchanged MANUAL", state.currentMode())
	}
}

func TestSwitchSurvivesPersistFailure(t *testing.T) {
	state := newPumpState(pump.ModeManual)
	settings := &fakeSettings{saveModeErr: context.DeadlineExceeded}
	s := NewModeService(state, &recordingCanceller{}, settings, &fakeEvents{}, nil)

	if err := s.SwitchTo(context.Background(), pump.ModeAutomatic); err != nil {
		t.Fatalf("SwitchTo = %v, want nil despite persist failure", err)
	}
	if state.currentMode() != pump.ModeAutomatic {
		t.Errorf("mode = %q, want AUTOMATIC", state.currentMode())
	}
}
