package device

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	pump "pump_control"
)

// recordedRequest captures one request for assertions.
type recordedRequest struct {
	method string
	path   string
	auth   string
	body   []byte
}

// deviceServer is a scriptable stand-in for the real endpoint.
type deviceServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int    // response code, default 200
	pumpOn   int    // payload for GET /status
	failures int    // how many requests to fail before succeeding
	srv      *httptest.Server
}

func newDeviceServer() *deviceServer {
	ds := &deviceServer{status: http.StatusOK}
	ds.srv = httptest.NewServer(http.HandlerFunc(ds.handle))
	return ds
}

func (ds *deviceServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	ds.mu.Lock()
	ds.requests = append(ds.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})
	failing := ds.failures > 0
	if failing {
		ds.failures--
	}
	status, pumpOn := ds.status, ds.pumpOn
	ds.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	w.WriteHeader(status)
	if r.URL.Path == "/status" && status == http.StatusOK {
		_ = json.NewEncoder(w).Encode(map[string]any{"pumpOn": pumpOn, "temperature": 24.5})
	}
}

func (ds *deviceServer) count() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.requests)
}

func (ds *deviceServer) last() recordedRequest {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.requests[len(ds.requests)-1]
}

func newTestClient(ds *deviceServer) *Client {
	return New(Config{
		BaseURL:      ds.srv.URL,
		Timeout:      2 * time.Second,
		BreakerFails: 100, // keep the breaker out of the way unless the test wants it
		PushRetries:  2,
	})
}

func TestStatus(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	ds.pumpOn = 1
	c := newTestClient(ds)

	on, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !on {
		t.Error("on = false, want true for pumpOn=1")
	}
	if req := ds.last(); req.method != http.MethodGet || req.path != "/status" {
		t.Errorf("request = %s %s, want GET /status", req.method, req.path)
	}

	ds.mu.Lock()
	ds.pumpOn = 0
	ds.mu.Unlock()
	on, err = c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if on {
		t.Error("on = true, want false for pumpOn=0")
	}
}

func TestSetPumpWireFormat(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	c := newTestClient(ds)

	if err := c.SetPump(context.Background(), true); err != nil {
		t.Fatalf("SetPump: %v", err)
	}
	req := ds.last()
	if req.method != http.MethodPost || req.path != "/command" {
		t.Errorf("request = %s %s, want POST /command", req.method, req.path)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(req.body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ON" {
		t.Errorf("status = %q, want ON", body.Status)
	}

	if err := c.SetPump(context.Background(), false); err != nil {
		t.Fatalf("SetPump: %v", err)
	}
	_ = json.Unmarshal(ds.last().body, &body)
	if body.Status != "OFF" {
		t.Errorf("status = %q, want OFF", body.Status)
	}
}

func TestSetPumpNoRetry(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	ds.failures = 1
	c := newTestClient(ds)

	if err := c.SetPump(context.Background(), true); err == nil {
		t.Fatal("SetPump succeeded, want error from 502")
	}
	// A hardware command must be delivered at most once.
	if ds.count() != 1 {
		t.Errorf("requests = %d, want 1 (no retry on commands)", ds.count())
	}
}

func TestPulseWireFormat(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	c := newTestClient(ds)

	if err := c.Pulse(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	req := ds.last()
	if req.path != "/command/pulse" {
		t.Errorf("path = %s, want /command/pulse", req.path)
	}
	var body struct {
		Command    string `json:"command"`
		DurationMs int64  `json:"durationMs"`
	}
	if err := json.Unmarshal(req.body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Command != "PUMP_ON" || body.DurationMs != 10_000 {
		t.Errorf("body = %+v, want PUMP_ON for 10000ms", body)
	}
}

func TestPushSchedulesRetries(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	ds.failures = 2
	c := newTestClient(ds)

	start, _ := pump.ParseClock("06:00")
	end, _ := pump.ParseClock("06:05")
	err := c.PushSchedules(context.Background(), []pump.ScheduleWindow{{Start: start, End: end}})
	if err != nil {
		t.Fatalf("PushSchedules: %v", err)
	}
	if ds.count() != 3 {
		t.Errorf("requests = %d, want 3 (2 failures + success)", ds.count())
	}
	var windows []map[string]string
	if err := json.Unmarshal(ds.last().body, &windows); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(windows) != 1 || windows[0]["from"] != "06:00" || windows[0]["to"] != "06:05" {
		t.Errorf("pushed windows = %v, want [{06:00 06:05}]", windows)
	}
}

func TestPushThresholds(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	c := newTestClient(ds)

	err := c.PushThresholds(context.Background(), pump.Thresholds{"soilPercent": 40})
	if err != nil {
		t.Fatalf("PushThresholds: %v", err)
	}
	req := ds.last()
	if req.path != "/thresholds" {
		t.Errorf("path = %s, want /thresholds", req.path)
	}
	var body map[string]float64
	if err := json.Unmarshal(req.body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["soilPercent"] != 40 {
		t.Errorf("body = %v, want soilPercent 40", body)
	}
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	ds.mu.Lock()
	ds.status = http.StatusInternalServerError
	ds.mu.Unlock()

	c := New(Config{
		BaseURL:        ds.srv.URL,
		Timeout:        time.Second,
		BreakerFails:   2,
		BreakerOpenFor: time.Minute,
		PushRetries:    1,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Status(ctx); err == nil {
			t.Fatal("Status succeeded against a 500 server")
		}
	}
	before := ds.count()

	// The breaker is now open; the next call must not reach the network.
	if _, err := c.Status(ctx); err == nil {
		t.Fatal("Status succeeded with an open breaker")
	}
	if ds.count() != before {
		t.Errorf("requests = %d, want %d (open breaker short-circuits)", ds.count(), before)
	}
}

func TestVerifyToken(t *testing.T) {
	ds := newDeviceServer()
	defer ds.srv.Close()
	c := newTestClient(ds)

	if err := c.VerifyToken(context.Background(), "farm-token"); err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	req := ds.last()
	if req.path != "/check-auth" || req.auth != "Bearer farm-token" {
		t.Errorf("request = %s auth %q, want /check-auth with bearer", req.path, req.auth)
	}

	ds.mu.Lock()
	ds.status = http.StatusUnauthorized
	ds.mu.Unlock()
	if err := c.VerifyToken(context.Background(), "expired"); err == nil {
		t.Fatal("VerifyToken accepted a 401")
	}
}
