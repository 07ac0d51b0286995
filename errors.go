package pump_control

import (
	"errors"
	"fmt"
)

// Validation errors are returned synchronously, before any network call.
var (
	ErrInvalidWindow    = errors.New("invalid window: start must be before end")
	ErrOverlap          = errors.New("schedule windows overlap")
	ErrNotFound         = errors.New("schedule window not found")
	ErrInvalidDuration  = errors.New("pulse duration must be between 1 and 600 seconds")
	ErrInvalidThreshold = errors.New("threshold value must be a finite number")
)

// Command errors.
var (
	// ErrCommandInProgress is returned while a hardware command is still in
	// flight. Callers must wait; commands are never queued or merged.
	ErrCommandInProgress = errors.New("a pump command is already in progress")

	// ErrCommandFailed wraps a network or remote error during toggle/pulse.
	// The optimistic state has already been rolled back when it is returned.
	ErrCommandFailed = errors.New("pump command failed")

	// ErrWrongMode is returned when a manual command is issued in AUTOMATIC mode.
	ErrWrongMode = errors.New("manual commands are only accepted in MANUAL mode")

	// ErrPumpRunning is returned when a pulse is requested while the pump is
	// already reported ON.
	ErrPumpRunning = errors.New("pump is already running")
)

// OverlapError identifies the first conflicting pair found by ScheduleSet.Validate.
type OverlapError struct {
	A, B ScheduleWindow
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("schedule windows overlap: %s and %s", e.A, e.B)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }
