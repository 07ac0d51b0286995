package repository

import (
	"context"
	"database/sql"
	"time"

	pump "pump_control"
)

// SettingsRepo persists last-known user configuration (mode, schedules,
// thresholds) in the local key-value store.
type SettingsRepo interface {
	SaveMode(ctx context.Context, m pump.Mode) error
	LoadMode(ctx context.Context) (pump.Mode, error) // "" when never saved
	SaveSchedules(ctx context.Context, ws []pump.ScheduleWindow) error
	LoadSchedules(ctx context.Context) ([]pump.ScheduleWindow, bool, error)
	SaveThresholds(ctx context.Context, t pump.Thresholds) error
	LoadThresholds(ctx context.Context) (pump.Thresholds, error) // nil when never saved
}

// EventRepo is the append-only control log with filtering access.
type EventRepo interface {
	Append(ctx context.Context, e pump.ControlEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]pump.ControlEvent, error)
}

type Repository struct {
	Settings SettingsRepo
	Events   EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Settings: NewSettingsSQLite(db),
		Events:   NewEventSQLite(db),
	}
}
