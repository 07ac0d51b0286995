package service

import (
	"sync"
	"time"

	pump "pump_control"

	"github.com/google/uuid"
)

// pumpState is the one genuinely shared resource. Field ownership is strict:
// the dispatcher writes optimistic and pending, the poller writes reported
// and statusUnknown, the mode controller writes mode. All access goes through
// these accessors, so partial updates are never observable even under
// interleaved async callbacks.
type pumpState struct {
	mu            sync.Mutex
	mode          pump.Mode
	reported      *bool // last device-reported value; nil until first poll
	optimistic    *bool // locally assumed value; nil when no local intent
	pendingID     string
	activePulseID string
	statusUnknown bool
	lastReportAt  time.Time
}

func newPumpState(mode pump.Mode) *pumpState {
	return &pumpState{mode: mode}
}

func boolPtr(b bool) *bool { return &b }

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Snapshot returns the read-only view handed to the view layer.
func (s *pumpState) Snapshot() pump.PumpSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := pump.PumpSnapshot{
		Mode:             s.mode,
		ReportedOn:       copyBool(s.reported),
		OptimisticOn:     copyBool(s.optimistic),
		PendingCommandID: s.pendingID,
		StatusUnknown:    s.statusUnknown,
	}
	if s.optimistic != nil {
		snap.DisplayOn = copyBool(s.optimistic)
	} else {
		snap.DisplayOn = copyBool(s.reported)
	}
	if !s.lastReportAt.IsZero() {
		t := s.lastReportAt
		snap.LastReportAt = &t
	}
	return snap
}

func (s *pumpState) currentMode() pump.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *pumpState) setMode(m pump.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *pumpState) reportedOn() *bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBool(s.reported)
}

func (s *pumpState) optimisticOn() *bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBool(s.optimistic)
}

// displayOn is the value a view renders: optimistic when set, else reported.
func (s *pumpState) displayOn() *bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.optimistic != nil {
		return copyBool(s.optimistic)
	}
	return copyBool(s.reported)
}

// beginCommand reserves the single in-flight command slot and applies the
// optimistic update in the same critical section, so the new value is
// observable before the network round-trip starts. Returns the command id
// and the reported value to roll back to on failure.
func (s *pumpState) beginCommand(target bool) (id string, rollback *bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID != "" {
		return "", nil, pump.ErrCommandInProgress
	}
	id = uuid.NewString()
	s.pendingID = id
	rollback = copyBool(s.reported)
	s.optimistic = boolPtr(target)
	return id, rollback, nil
}

// resolveCommand clears the pending slot. On failure the optimistic value
// rolls back to the reported value captured at dispatch time.
func (s *pumpState) resolveCommand(id string, ok bool, rollback *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID != id {
		return
	}
	s.pendingID = ""
	if !ok {
		s.optimistic = rollback
	}
}

func (s *pumpState) setActivePulse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePulseID = id
}

func (s *pumpState) clearActivePulse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePulseID = ""
}

// expirePulse flips the displayed state back to OFF when the advisory
// countdown for the given pulse elapses. Reports false when that pulse is no
// longer the active one (cancelled or superseded by a manual command).
func (s *pumpState) expirePulse(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePulseID != id {
		return false
	}
	s.activePulseID = ""
	s.optimistic = boolPtr(false)
	return true
}

// applyReport stores device-reported ground truth. While a command is
// pending the optimistic value is left untouched, so the control does not
// flicker mid-flight; once no local intent is outstanding, ground truth wins.
func (s *pumpState) applyReport(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reported = boolPtr(on)
	s.lastReportAt = time.Now().UTC()
	s.statusUnknown = false
	if s.pendingID == "" {
		s.optimistic = nil
	}
}

func (s *pumpState) markUnknown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusUnknown = true
}
