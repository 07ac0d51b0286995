// Package device talks to the remote device-control endpoint. It owns the
// wire contract only; command legality and optimistic state live in the
// service layer.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	pump "pump_control"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Remote endpoint paths, relative to the configured base URL.
const (
	pathStatus     = "/status"
	pathCommand    = "/command"
	pathPulse      = "/command/pulse"
	pathThresholds = "/thresholds"
	pathSchedules  = "/schedules"
	pathCheckAuth  = "/check-auth"
)

// statusBody is the device-reported ground truth. Other telemetry fields in
// the payload are ignored here.
type statusBody struct {
	PumpOn int `json:"pumpOn"`
}

type commandBody struct {
	Status string `json:"status"` // "ON" | "OFF"
}

type pulseBody struct {
	Command    string `json:"command"` // always "PUMP_ON"
	DurationMs int64  `json:"durationMs"`
}

// Config tunes the client. Zero values fall back to the defaults below.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	BreakerFails   uint32        // consecutive failures before the breaker opens
	BreakerOpenFor time.Duration // how long the breaker stays open
	PushRetries    uint64        // retry budget for schedule/threshold pushes
}

const (
	defaultTimeout        = 5 * time.Second
	defaultBreakerFails   = 5
	defaultBreakerOpenFor = 15 * time.Second
	defaultPushRetries    = 3
)

// Client is an HTTP client for the device-control API with a circuit breaker
// around every call. Configuration pushes additionally retry with exponential
// backoff; pump commands never retry, because a duplicate delivery of a
// hardware command is unsafe without device confirmation.
type Client struct {
	base        string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	pushRetries uint64
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerFails == 0 {
		cfg.BreakerFails = defaultBreakerFails
	}
	if cfg.BreakerOpenFor <= 0 {
		cfg.BreakerOpenFor = defaultBreakerOpenFor
	}
	if cfg.PushRetries == 0 {
		cfg.PushRetries = defaultPushRetries
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "device-control",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerFails
		},
	})
	return &Client{
		base:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:      &http.Client{Timeout: cfg.Timeout},
		breaker:     cb,
		pushRetries: cfg.PushRetries,
	}
}

// Status fetches the device-reported pump state.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var body statusBody
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.getJSON(ctx, pathStatus, &body)
	})
	if err != nil {
		return false, err
	}
	return body.PumpOn == 1, nil
}

// SetPump issues a manual ON/OFF command.
func (c *Client) SetPump(ctx context.Context, on bool) error {
	status := "OFF"
	if on {
		status = "ON"
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.postJSON(ctx, pathCommand, commandBody{Status: status})
	})
	return err
}

// Pulse issues a timed activation. The device is the authority on auto-off;
// the duration is carried on the wire in milliseconds.
func (c *Client) Pulse(ctx context.Context, d time.Duration) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.postJSON(ctx, pathPulse, pulseBody{
			Command:    "PUMP_ON",
			DurationMs: d.Milliseconds(),
		})
	})
	return err
}

// PushSchedules persists the ordered window set to the remote store.
// The server stores the payload as-is; validation happened client-side.
func (c *Client) PushSchedules(ctx context.Context, ws []pump.ScheduleWindow) error {
	return c.pushWithRetry(ctx, pathSchedules, ws)
}

// PushThresholds persists the automatic-mode configuration to the remote store.
func (c *Client) PushThresholds(ctx context.Context, t pump.Thresholds) error {
	return c.pushWithRetry(ctx, pathThresholds, t)
}

// VerifyToken asks the remote API whether the bearer token is valid.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+pathCheckAuth, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("check-auth status %d", resp.StatusCode)
	}
	return nil
}

// pushWithRetry retries idempotent configuration pushes with exponential
// backoff. Pushes carry full snapshots, so a duplicate delivery produces the
// same remote end-state.
func (c *Client) pushWithRetry(ctx context.Context, path string, payload any) error {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.postJSON(ctx, path, payload)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(bo, c.pushRetries))
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("device request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("device status %d on %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("device decode error: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("device request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("device status %d on %s", resp.StatusCode, path)
	}
	return nil
}
