package handlers

import (
	"context"
	"net/http"
	"time"

	pump "pump_control"
	"pump_control/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	verifyErr error
	lastToken string
}

func (m *mockAuth) Verify(ctx context.Context, token string) error {
	m.lastToken = token
	return m.verifyErr
}

type mockPump struct {
	snapshot  pump.PumpSnapshot
	toggleErr error
	pulseErr  error

	toggleCalls int
	pulseCalls  int
	lastToggle  bool
	lastPulse   int
}

func (m *mockPump) Toggle(ctx context.Context, on bool) error {
	m.toggleCalls++
	m.lastToggle = on
	return m.toggleErr
}

func (m *mockPump) Pulse(ctx context.Context, seconds int) error {
	m.pulseCalls++
	m.lastPulse = seconds
	return m.pulseErr
}

func (m *mockPump) Snapshot() pump.PumpSnapshot { return m.snapshot }

type mockModeControl struct {
	mode      pump.Mode
	switchErr error

	switchCalls int
	lastSwitch  pump.Mode
}

func (m *mockModeControl) Current() pump.Mode { return m.mode }

func (m *mockModeControl) SwitchTo(ctx context.Context, mode pump.Mode) error {
	m.switchCalls++
	m.lastSwitch = mode
	if m.switchErr == nil {
		m.mode = mode
	}
	return m.switchErr
}

type mockSchedules struct {
	windows   []pump.ScheduleWindow
	addErr    error
	removeErr error
	saveErr   error

	addCalls    int
	removeCalls int
	saveCalls   int
	lastAdded   pump.ScheduleWindow
	lastRemoved int
}

func (m *mockSchedules) List() []pump.ScheduleWindow { return m.windows }

func (m *mockSchedules) Add(ctx context.Context, w pump.ScheduleWindow) error {
	m.addCalls++
	m.lastAdded = w
	if m.addErr == nil {
		m.windows = append(m.windows, w)
	}
	return m.addErr
}

func (m *mockSchedules) Remove(ctx context.Context, index int) error {
	m.removeCalls++
	m.lastRemoved = index
	return m.removeErr
}

func (m *mockSchedules) Save(ctx context.Context) error {
	m.saveCalls++
	return m.saveErr
}

type mockThresholds struct {
	values  pump.Thresholds
	setErr  error
	saveErr error

	setCalls  int
	saveCalls int
	lastParam string
	lastValue float64
}

func (m *mockThresholds) Snapshot() pump.Thresholds {
	if m.values == nil {
		return pump.Thresholds{}
	}
	return m.values.Snapshot()
}

func (m *mockThresholds) Set(ctx context.Context, parameter string, value float64) error {
	m.setCalls++
	m.lastParam = parameter
	m.lastValue = value
	return m.setErr
}

func (m *mockThresholds) Save(ctx context.Context) error {
	m.saveCalls++
	return m.saveErr
}

type mockEventLog struct {
	resp     []pump.ControlEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]pump.ControlEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
