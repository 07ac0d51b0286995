package service

import (
	"context"
	"time"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/repository"
)

// DeviceClient is the remote device-control endpoint. The concrete
// implementation lives in internal/device; services depend on this interface
// so tests can substitute fakes.
type DeviceClient interface {
	Status(ctx context.Context) (bool, error)
	SetPump(ctx context.Context, on bool) error
	Pulse(ctx context.Context, d time.Duration) error
	PushSchedules(ctx context.Context, ws []pump.ScheduleWindow) error
	PushThresholds(ctx context.Context, t pump.Thresholds) error
	VerifyToken(ctx context.Context, token string) error
}

// Notifier delivers best-effort operator alerts (Slack in production).
type Notifier interface {
	Alert(title, message string)
	Alertf(title, format string, args ...any)
}

// Pump exposes manual command dispatch and the observable pump state.
type Pump interface {
	Toggle(ctx context.Context, on bool) error
	Pulse(ctx context.Context, seconds int) error
	Snapshot() pump.PumpSnapshot
}

// ModeControl is the manual/automatic state machine gating manual commands.
type ModeControl interface {
	Current() pump.Mode
	SwitchTo(ctx context.Context, m pump.Mode) error
}

// Schedules holds the ordered, non-overlapping watering windows.
type Schedules interface {
	List() []pump.ScheduleWindow
	Add(ctx context.Context, w pump.ScheduleWindow) error
	Remove(ctx context.Context, index int) error
	Save(ctx context.Context) error
}

// Thresholds holds the automatic-mode trigger configuration.
type Thresholds interface {
	Snapshot() pump.Thresholds
	Set(ctx context.Context, parameter string, value float64) error
	Save(ctx context.Context) error
}

// EventLog exposes the append-only control log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]pump.ControlEvent, error)
}

// Poller runs the status reconciliation loop until ctx is cancelled.
type Poller interface {
	Run(ctx context.Context, tick time.Duration)
}

// Authorization verifies bearer tokens against the remote API; no tokens are
// parsed or minted locally.
type Authorization interface {
	Verify(ctx context.Context, token string) error
}

// LogFilter supports control-log filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "COMMAND", "PULSE", "MODE_CHANGE", "ERROR", "STATUS"
}

// Service aggregates all sub-services behind their interfaces.
type Service struct {
	Pump
	ModeControl
	Schedules
	Thresholds
	EventLog
	Poller
	Authorization
}

// Deps carries the wiring inputs for NewService.
type Deps struct {
	Repos            *repository.Repository
	Device           DeviceClient
	Notifier         Notifier
	Log              *logger.Logger
	FailureThreshold int // consecutive poll failures before StatusUnknown
}

// NewService wires repositories and the device client into concrete
// services, restoring last-known configuration from the local store.
func NewService(ctx context.Context, d Deps) (*Service, error) {
	mode, err := d.Repos.Settings.LoadMode(ctx)
	if err != nil {
		return nil, err
	}
	if !mode.Valid() {
		mode = pump.ModeManual
	}
	state := newPumpState(mode)

	dispatcher := NewDispatcherService(state, d.Device, d.Repos.Events, d.Notifier, d.Log)

	schedules, err := NewScheduleService(ctx, d.Repos.Settings, d.Device, d.Repos.Events, d.Log)
	if err != nil {
		return nil, err
	}
	thresholds, err := NewThresholdService(ctx, d.Repos.Settings, d.Device, d.Log)
	if err != nil {
		return nil, err
	}

	return &Service{
		Pump:          dispatcher,
		ModeControl:   NewModeService(state, dispatcher, d.Repos.Settings, d.Repos.Events, d.Log),
		Schedules:     schedules,
		Thresholds:    thresholds,
		EventLog:      NewEventLogService(d.Repos.Events),
		Poller:        NewPollerService(state, d.Device, d.Repos.Events, d.Notifier, d.Log, d.FailureThreshold),
		Authorization: NewAuthService(d.Device),
	}, nil
}
