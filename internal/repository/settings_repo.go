package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pump "pump_control"
)

// SettingsSQLite stores settings as JSON values in a small key-value table.
type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

// Keys in the pump_settings table.
const (
	keyMode       = "mode"
	keySchedules  = "schedules"
	keyThresholds = "thresholds"
)

const (
	upsertSettingSQL = `
		INSERT INTO pump_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`

	selectSettingSQL = `SELECT value FROM pump_settings WHERE key=?`
)

// put marshals v and upserts it under key.
func (r *SettingsSQLite) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal setting %q: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, upsertSettingSQL, key, string(b), time.Now().UTC())
	return err
}

// get unmarshals the value under key into out. Returns false when the key
// has never been saved.
func (r *SettingsSQLite) get(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, selectSettingSQL, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal setting %q: %w", key, err)
	}
	return true, nil
}

func (r *SettingsSQLite) SaveMode(ctx context.Context, m pump.Mode) error {
	return r.put(ctx, keyMode, m)
}

func (r *SettingsSQLite) LoadMode(ctx context.Context) (pump.Mode, error) {
	var m pump.Mode
	found, err := r.get(ctx, keyMode, &m)
	if err != nil || !found {
		return "", err
	}
	return m, nil
}

func (r *SettingsSQLite) SaveSchedules(ctx context.Context, ws []pump.ScheduleWindow) error {
	return r.put(ctx, keySchedules, ws)
}

func (r *SettingsSQLite) LoadSchedules(ctx context.Context) ([]pump.ScheduleWindow, bool, error) {
	var ws []pump.ScheduleWindow
	found, err := r.get(ctx, keySchedules, &ws)
	if err != nil || !found {
		return nil, false, err
	}
	return ws, true, nil
}

func (r *SettingsSQLite) SaveThresholds(ctx context.Context, t pump.Thresholds) error {
	return r.put(ctx, keyThresholds, t)
}

func (r *SettingsSQLite) LoadThresholds(ctx context.Context) (pump.Thresholds, error) {
	var t pump.Thresholds
	found, err := r.get(ctx, keyThresholds, &t)
	if err != nil || !found {
		return nil, err
	}
	return t, nil
}
