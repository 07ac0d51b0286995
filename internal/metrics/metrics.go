// Package metrics exposes Prometheus counters for the control plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts dispatched pump commands by kind and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_control",
		Name:      "commands_total",
		Help:      "Pump commands dispatched, by command and result.",
	}, []string{"command", "result"})

	// PollsTotal counts reconciliation poll ticks by outcome.
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_control",
		Name:      "polls_total",
		Help:      "Status reconciliation polls, by result.",
	}, []string{"result"})

	// ModeSwitchesTotal counts mode transitions by target mode.
	ModeSwitchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_control",
		Name:      "mode_switches_total",
		Help:      "Mode switches, by target mode.",
	}, []string{"mode"})

	// StatusUnknown is 1 while sustained poll failures exceed the threshold.
	StatusUnknown = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pump_control",
		Name:      "status_unknown",
		Help:      "1 when device status is unknown after sustained poll failures.",
	})
)

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)
