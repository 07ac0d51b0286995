package service

import (
	"context"
	"sync"
	"time"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/repository"
)

// queuedSaveTimeout bounds each coalesced background push.
const queuedSaveTimeout = 10 * time.Second

// ThresholdService owns the automatic-mode trigger configuration. Every
// successful Set mirrors the map to the local store and queues a push to the
// remote store; rapid edits before a round-trip completes coalesce into one
// outbound save carrying the latest snapshot (last-write-wins locally, no
// merge with concurrent remote writers).
type ThresholdService struct {
	mu     sync.Mutex
	values pump.Thresholds
	dirty  bool
	saving bool

	settings repository.SettingsRepo
	dev      DeviceClient
	log      *logger.Logger
}

// NewThresholdService restores the last-saved values from the local store,
// seeding the defaults on first run.
func NewThresholdService(ctx context.Context, settings repository.SettingsRepo, dev DeviceClient, log *logger.Logger) (*ThresholdService, error) {
	values, err := settings.LoadThresholds(ctx)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = pump.DefaultThresholds()
	}
	return &ThresholdService{
		values:   values,
		settings: settings,
		dev:      dev,
		log:      log,
	}, nil
}

// Snapshot returns an immutable copy of the current values.
func (s *ThresholdService) Snapshot() pump.Thresholds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Snapshot()
}

// Set validates and stores a trigger value, then queues a coalesced save.
func (s *ThresholdService) Set(ctx context.Context, parameter string, value float64) error {
	s.mu.Lock()
	if err := s.values.Set(parameter, value); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.values.Snapshot()
	s.mu.Unlock()

	if err := s.settings.SaveThresholds(ctx, snap); err != nil && s.log != nil {
		s.log.Warnw("thresholds_persist_failed", "err", err)
	}
	s.queueSave()
	return nil
}

// Save pushes the current snapshot to the remote store synchronously.
func (s *ThresholdService) Save(ctx context.Context) error {
	return s.dev.PushThresholds(ctx, s.Snapshot())
}

// queueSave starts the background push, or marks the running one dirty so it
// sends one more save with the latest values when it finishes.
func (s *ThresholdService) queueSave() {
	s.mu.Lock()
	if s.saving {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	s.saving = true
	snap := s.values.Snapshot()
	s.mu.Unlock()

	go s.saveLoop(snap)
}

func (s *ThresholdService) saveLoop(snap pump.Thresholds) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), queuedSaveTimeout)
		err := s.dev.PushThresholds(ctx, snap)
		cancel()
		if err != nil && s.log != nil {
			s.log.Warnw("thresholds_push_failed", "err", err)
		}

		s.mu.Lock()
		if s.dirty {
			s.dirty = false
			snap = s.values.Snapshot()
			s.mu.Unlock()
			continue
		}
		s.saving = false
		s.mu.Unlock()
		return
	}
}
