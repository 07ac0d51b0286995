package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/metrics"
	"pump_control/internal/repository"
)

// Pulse duration bounds in seconds.
const (
	minPulseSeconds = 1
	maxPulseSeconds = 600
)

// cancelCommandTimeout bounds the best-effort OFF issued when a pulse is
// cancelled by a mode switch.
const cancelCommandTimeout = 5 * time.Second

// DispatcherService translates manual intents into remote commands while
// keeping local state usable under latency and partial failure. It is the
// only writer of the optimistic value and the pending command slot.
type DispatcherService struct {
	state    *pumpState
	dev      DeviceClient
	events   repository.EventRepo
	notifier Notifier
	log      *logger.Logger

	// timerMu guards the advisory countdown handle only; pump state has its
	// own lock.
	timerMu    sync.Mutex
	pulseTimer *time.Timer
}

func NewDispatcherService(state *pumpState, dev DeviceClient, events repository.EventRepo, notifier Notifier, log *logger.Logger) *DispatcherService {
	return &DispatcherService{
		state:    state,
		dev:      dev,
		events:   events,
		notifier: notifier,
		log:      log,
	}
}

// Snapshot exposes the current pump state to the view layer.
func (d *DispatcherService) Snapshot() pump.PumpSnapshot {
	return d.state.Snapshot()
}

// Toggle issues a manual ON/OFF command. The optimistic update is observable
// before the network round-trip completes; on failure it rolls back to the
// last reported value and the error wraps ErrCommandFailed.
func (d *DispatcherService) Toggle(ctx context.Context, on bool) error {
	if d.state.currentMode() != pump.ModeManual {
		return pump.ErrWrongMode
	}
	id, rollback, err := d.state.beginCommand(on)
	if err != nil {
		return err
	}

	// A manual command supersedes any advisory pulse countdown. Stopping the
	// timer issues no network call; the toggle itself is the command.
	d.stopPulseTimer()

	if err := d.dev.SetPump(ctx, on); err != nil {
		d.state.resolveCommand(id, false, rollback)
		metrics.CommandsTotal.WithLabelValues("toggle", metrics.ResultFailed).Inc()
		d.appendEvent(ctx, pump.EventError, fmt.Sprintf("toggle %s failed", onOff(on)),
			map[string]any{"command_id": id, "err": err.Error()})
		if d.notifier != nil {
			d.notifier.Alertf("Pump command failed", "toggle %s: %v", onOff(on), err)
		}
		return fmt.Errorf("%w: toggle %s: %v", pump.ErrCommandFailed, onOff(on), err)
	}

	d.state.resolveCommand(id, true, nil)
	metrics.CommandsTotal.WithLabelValues("toggle", metrics.ResultOK).Inc()
	d.appendEvent(ctx, pump.EventCommand, "pump commanded "+onOff(on),
		map[string]any{"command_id": id, "target_on": on})
	return nil
}

// Pulse activates the pump for the given number of seconds. The device is
// the authority on auto-off; the local countdown only flips the displayed
// state back to OFF at expiry so the view does not wait on the next poll.
func (d *DispatcherService) Pulse(ctx context.Context, seconds int) error {
	if d.state.currentMode() != pump.ModeManual {
		return pump.ErrWrongMode
	}
	if seconds < minPulseSeconds || seconds > maxPulseSeconds {
		return pump.ErrInvalidDuration
	}
	if on := d.state.displayOn(); on != nil && *on {
		return pump.ErrPumpRunning
	}

	id, _, err := d.state.beginCommand(true)
	if err != nil {
		return err
	}

	dur := time.Duration(seconds) * time.Second
	d.armPulseTimer(id, dur)

	if err := d.dev.Pulse(ctx, dur); err != nil {
		d.stopPulseTimer()
		d.state.resolveCommand(id, false, boolPtr(false)) // a failed pulse leaves the pump OFF
		metrics.CommandsTotal.WithLabelValues("pulse", metrics.ResultFailed).Inc()
		d.appendEvent(ctx, pump.EventError, fmt.Sprintf("pulse %ds failed", seconds),
			map[string]any{"command_id": id, "err": err.Error()})
		if d.notifier != nil {
			d.notifier.Alertf("Pump command failed", "pulse %ds: %v", seconds, err)
		}
		return fmt.Errorf("%w: pulse %ds: %v", pump.ErrCommandFailed, seconds, err)
	}

	d.state.resolveCommand(id, true, nil)
	metrics.CommandsTotal.WithLabelValues("pulse", metrics.ResultOK).Inc()
	d.appendEvent(ctx, pump.EventPulse, fmt.Sprintf("pump pulsed for %ds", seconds),
		map[string]any{"command_id": id, "duration_sec": seconds})
	return nil
}

// CancelPulseForAutomatic is invoked on the MANUAL→AUTOMATIC transition. It
// cancels the advisory countdown and, only if the pump is optimistically ON,
// issues exactly one best-effort OFF command so a manual pulse cannot keep
// running under automatic control. The command is asynchronous; failure is
// logged, not retried, and never blocks the mode switch.
func (d *DispatcherService) CancelPulseForAutomatic() {
	d.stopPulseTimer()

	opt := d.state.optimisticOn()
	if opt == nil || !*opt {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cancelCommandTimeout)
		defer cancel()

		id, rollback, err := d.state.beginCommand(false)
		if err != nil {
			if d.log != nil {
				d.log.Warnw("pulse_cancel_skipped", "err", err)
			}
			return
		}
		if err := d.dev.SetPump(ctx, false); err != nil {
			d.state.resolveCommand(id, false, rollback)
			if d.log != nil {
				d.log.Errorw("pulse_cancel_off_failed", "err", err)
			}
			return
		}
		d.state.resolveCommand(id, true, nil)
		d.appendEvent(ctx, pump.EventCommand, "pump commanded OFF on switch to automatic",
			map[string]any{"command_id": id})
	}()
}

// Shutdown releases the advisory timer on teardown.
func (d *DispatcherService) Shutdown() {
	d.stopPulseTimer()
}

// armPulseTimer starts the advisory countdown for the given pulse. Expiry
// never issues a network call.
func (d *DispatcherService) armPulseTimer(id string, dur time.Duration) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.pulseTimer != nil {
		d.pulseTimer.Stop()
	}
	d.state.setActivePulse(id)
	d.pulseTimer = time.AfterFunc(dur, func() {
		if d.state.expirePulse(id) && d.log != nil {
			d.log.Debugw("pulse_expired", "command_id", id)
		}
	})
}

func (d *DispatcherService) stopPulseTimer() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.pulseTimer != nil {
		d.pulseTimer.Stop()
		d.pulseTimer = nil
	}
	d.state.clearActivePulse()
}

func (d *DispatcherService) appendEvent(ctx context.Context, typ, description string, meta map[string]any) {
	if d.events == nil {
		return
	}
	_ = d.events.Append(ctx, pump.ControlEvent{
		Type:        typ,
		Description: description,
		Metadata:    meta,
	})
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
