package service

import (
	"context"
	"sync"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/repository"
)

// ScheduleService owns the watering-window set. Edits are validated and
// mirrored to the local store immediately; Save pushes the ordered set to
// the remote store, which is trusted to keep it as-is.
type ScheduleService struct {
	mu       sync.Mutex
	set      *pump.ScheduleSet
	settings repository.SettingsRepo
	dev      DeviceClient
	events   repository.EventRepo
	log      *logger.Logger
}

// NewScheduleService restores the last-saved windows from the local store,
// seeding the defaults on first run. A conflicting stored set is kept but
// reported, so the user can repair it through the view.
func NewScheduleService(ctx context.Context, settings repository.SettingsRepo, dev DeviceClient, events repository.EventRepo, log *logger.Logger) (*ScheduleService, error) {
	ws, found, err := settings.LoadSchedules(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		ws = pump.DefaultSchedules()
	}
	set := pump.NewScheduleSet(ws)
	if err := set.Validate(); err != nil && log != nil {
		log.Warnw("stored_schedules_conflict", "err", err)
	}
	return &ScheduleService{
		set:      set,
		settings: settings,
		dev:      dev,
		events:   events,
		log:      log,
	}, nil
}

// List returns the windows ordered by start time.
func (s *ScheduleService) List() []pump.ScheduleWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Windows()
}

// Add validates and inserts a window. Validation failures surface
// synchronously; no network call is made.
func (s *ScheduleService) Add(ctx context.Context, w pump.ScheduleWindow) error {
	s.mu.Lock()
	if err := s.set.Add(w); err != nil {
		s.mu.Unlock()
		return err
	}
	ws := s.set.Windows()
	s.mu.Unlock()

	s.persistLocal(ctx, ws)
	return nil
}

// Remove deletes the window at the given position in the sorted set.
func (s *ScheduleService) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	if err := s.set.Remove(index); err != nil {
		s.mu.Unlock()
		return err
	}
	ws := s.set.Windows()
	s.mu.Unlock()

	s.persistLocal(ctx, ws)
	return nil
}

// Save re-validates the full set and pushes it to the remote store.
func (s *ScheduleService) Save(ctx context.Context) error {
	s.mu.Lock()
	err := s.set.Validate()
	ws := s.set.Windows()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.dev.PushSchedules(ctx, ws); err != nil {
		return err
	}
	if s.events != nil {
		_ = s.events.Append(ctx, pump.ControlEvent{
			Type:        pump.EventCommand,
			Description: "schedules saved to remote store",
			Metadata:    map[string]any{"windows": len(ws)},
		})
	}
	return nil
}

// persistLocal mirrors the set to the local store for offline continuity.
// A failed write degrades continuity, not correctness.
func (s *ScheduleService) persistLocal(ctx context.Context, ws []pump.ScheduleWindow) {
	if err := s.settings.SaveSchedules(ctx, ws); err != nil && s.log != nil {
		s.log.Warnw("schedules_persist_failed", "err", err)
	}
}
