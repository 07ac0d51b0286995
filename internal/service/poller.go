package service

import (
	"context"
	"time"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/metrics"
	"pump_control/internal/repository"
)

// defaultFailureThreshold is the number of consecutive poll failures before
// the status indicator is downgraded to unknown.
const defaultFailureThreshold = 3

// PollerService periodically fetches device-reported ground truth and merges
// it with the optimistic state. It is the only writer of the reported value
// and the status-unknown flag.
type PollerService struct {
	state    *pumpState
	dev      DeviceClient
	events   repository.EventRepo
	notifier Notifier
	log      *logger.Logger

	failureThreshold int
	consecutive      int
	unknown          bool
}

func NewPollerService(state *pumpState, dev DeviceClient, events repository.EventRepo, notifier Notifier, log *logger.Logger, failureThreshold int) *PollerService {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	return &PollerService{
		state:            state,
		dev:              dev,
		events:           events,
		notifier:         notifier,
		log:              log,
		failureThreshold: failureThreshold,
	}
}

// Run ticks at the given interval until ctx is cancelled. Stop via context
// cancellation in main() for graceful shutdown.
func (p *PollerService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

// tick performs one reconciliation round. Transient failures are swallowed:
// the previous values are retained and no user-visible error is raised until
// the consecutive-failure threshold is exceeded.
func (p *PollerService) tick(ctx context.Context) {
	on, err := p.dev.Status(ctx)
	if err != nil {
		metrics.PollsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		p.consecutive++
		if p.log != nil {
			p.log.Debugw("status_poll_failed", "err", err, "consecutive", p.consecutive)
		}
		if p.consecutive >= p.failureThreshold && !p.unknown {
			p.unknown = true
			p.state.markUnknown()
			metrics.StatusUnknown.Set(1)
			if p.events != nil {
				_ = p.events.Append(ctx, pump.ControlEvent{
					Type:        pump.EventStatus,
					Description: "device status unknown after sustained poll failures",
					Metadata:    map[string]any{"consecutive_failures": p.consecutive},
				})
			}
			if p.notifier != nil {
				p.notifier.Alertf("Pump status unknown",
					"%d consecutive status polls failed; last error: %v", p.consecutive, err)
			}
		}
		return
	}

	metrics.PollsTotal.WithLabelValues(metrics.ResultOK).Inc()
	p.consecutive = 0
	if p.unknown {
		p.unknown = false
		metrics.StatusUnknown.Set(0)
		if p.events != nil {
			_ = p.events.Append(ctx, pump.ControlEvent{
				Type:        pump.EventStatus,
				Description: "device status recovered",
			})
		}
	}
	p.state.applyReport(on)
}
