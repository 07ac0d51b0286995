package service

import (
	"context"
	"fmt"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/metrics"
	"pump_control/internal/repository"
)

// pulseCanceller is the slice of the dispatcher the mode controller needs:
// cancelling an in-flight manual pulse when automatic control takes over.
type pulseCanceller interface {
	CancelPulseForAutomatic()
}

// ModeService is the manual/automatic state machine. SwitchTo is always
// legal; the only side effect is on the MANUAL→AUTOMATIC transition.
type ModeService struct {
	state      *pumpState
	dispatcher pulseCanceller
	settings   repository.SettingsRepo
	events     repository.EventRepo
	log        *logger.Logger
}

func NewModeService(state *pumpState, dispatcher pulseCanceller, settings repository.SettingsRepo, events repository.EventRepo, log *logger.Logger) *ModeService {
	return &ModeService{
		state:      state,
		dispatcher: dispatcher,
		settings:   settings,
		events:     events,
		log:        log,
	}
}

func (s *ModeService) Current() pump.Mode {
	return s.state.currentMode()
}

// SwitchTo changes the mode synchronously with respect to local state. On
// MANUAL→AUTOMATIC any active pulse is cancelled and, if the pump was
// optimistically ON, a single best-effort OFF is issued asynchronously; a
// failed cancellation is logged, not retried, and never blocks the switch.
// AUTOMATIC→MANUAL issues no implicit command.
func (s *ModeService) SwitchTo(ctx context.Context, m pump.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("invalid mode %q", m)
	}
	prev := s.state.currentMode()
	if prev == m {
		return nil
	}

	s.state.setMode(m)

	if m == pump.ModeAutomatic {
		s.dispatcher.CancelPulseForAutomatic()
	}

	// The local store keeps the preference for the next session; a failed
	// write degrades continuity, not correctness.
	if err := s.settings.SaveMode(ctx, m); err != nil && s.log != nil {
		s.log.Warnw("mode_persist_failed", "err", err, "mode", m)
	}

	metrics.ModeSwitchesTotal.WithLabelValues(string(m)).Inc()
	if s.events != nil {
		_ = s.events.Append(ctx, pump.ControlEvent{
			Type:        pump.EventModeChange,
			Description: fmt.Sprintf("mode changed to %s", m),
			Metadata:    map[string]any{"from": prev, "to": m},
		})
	}
	return nil
}
