package repository

import (
	"context"
	"errors"
	"testing"

	pump "pump_control"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSettingsMock(t *testing.T) (*SettingsSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewSettingsSQLite(db), mock, func() { _ = db.Close() }
}

func TestSaveMode(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	mock.ExpectExec("INSERT INTO pump_settings").
		WithArgs("mode", `"AUTOMATIC"`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveMode(context.Background(), pump.ModeAutomatic); err != nil {
		t.Fatalf("SaveMode: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestLoadMode(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{"value"}).AddRow(`"MANUAL"`)
	mock.ExpectQuery("SELECT value FROM pump_settings").
		WithArgs("mode").
		WillReturnRows(rows)

	m, err := repo.LoadMode(context.Background())
	if err != nil {
		t.Fatalf("LoadMode: %v", err)
	}
	if m != pump.ModeManual {
		t.Errorf("mode = %q, want MANUAL", m)
	}
}

func TestLoadModeNeverSaved(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	mock.ExpectQuery("SELECT value FROM pump_settings").
		WithArgs("mode").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	m, err := repo.LoadMode(context.Background())
	if err != nil {
		t.Fatalf("LoadMode: %v", err)
	}
	if m != "" {
		t.Errorf("mode = %q, want empty for a fresh store", m)
	}
}

func TestSaveAndLoadSchedules(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	mock.ExpectExec("INSERT INTO pump_settings").
		WithArgs("schedules", `[{"from":"06:00","to":"06:05"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	start, _ := pump.ParseClock("06:00")
	end, _ := pump.ParseClock("06:05")
	ws := []pump.ScheduleWindow{{Start: start, End: end}}
	if err := repo.SaveSchedules(context.Background(), ws); err != nil {
		t.Fatalf("SaveSchedules: %v", err)
	}

	rows := sqlmock.NewRows([]string{"value"}).AddRow(`[{"from":"06:00","to":"06:05"}]`)
	mock.ExpectQuery("SELECT value FROM pump_settings").
		WithArgs("schedules").
		WillReturnRows(rows)

	got, found, err := repo.LoadSchedules(context.Background())
	if err != nil {
		t.Fatalf("LoadSchedules: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if len(got) != 1 || got[0] != ws[0] {
		t.Errorf("schedules = %v, want %v", got, ws)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestLoadSchedulesNeverSaved(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	mock.ExpectQuery("SELECT value FROM pump_settings").
		WithArgs("schedules").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, found, err := repo.LoadSchedules(context.Background())
	if err != nil {
		t.Fatalf("LoadSchedules: %v", err)
	}
	if found {
		t.Error("found = true, want false for a fresh store")
	}
}

func TestSaveLoadThresholds(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	mock.ExpectExec("INSERT INTO pump_settings").
		WithArgs("thresholds", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveThresholds(context.Background(), pump.Thresholds{"soilPercent": 40}); err != nil {
		t.Fatalf("SaveThresholds: %v", err)
	}

	rows := sqlmock.NewRows([]string{"value"}).AddRow(`{"soilPercent":40}`)
	mock.ExpectQuery("SELECT value FROM pump_settings").
		WithArgs("thresholds").
		WillReturnRows(rows)

	got, err := repo.LoadThresholds(context.Background())
	if err != nil {
		t.Fatalf("LoadThresholds: %v", err)
	}
	if got["soilPercent"] != 40 {
		t.Errorf("soilPercent = %v, want 40", got["soilPercent"])
	}
}

func TestLoadThresholdsQueryError(t *testing.T) {
	repo, mock, closeFn := newSettingsMock(t)
	defer closeFn()

	mock.ExpectQuery("SELECT value FROM pump_settings").
		WithArgs("thresholds").
		WillReturnError(errors.New("database is locked"))

	if _, err := repo.LoadThresholds(context.Background()); err == nil {
		t.Fatal("LoadThresholds swallowed the query error")
	}
}
