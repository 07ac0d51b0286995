package handlers

import (
	"net/http"

	pump "pump_control"

	"github.com/gin-gonic/gin"
)

// Response status constants.
const (
	statusModeSet = "mode_set"
	statusToggled = "toggled"
	statusPulsed  = "pulsed"
)

// SetModeRequest is the payload for switching modes.
type SetModeRequest struct {
	// Mode to set. Allowed: MANUAL, AUTOMATIC
	Mode string `json:"mode" binding:"required" example:"AUTOMATIC"`
}

// ToggleRequest is the payload for a manual ON/OFF command.
type ToggleRequest struct {
	On *bool `json:"on" binding:"required"`
}

// PulseRequest is the payload for a timed activation.
type PulseRequest struct {
	// Seconds the pump stays on; the device self-deactivates afterwards.
	DurationSec int `json:"duration_sec" binding:"required" example:"10"`
}

// respondWithState writes a status string plus the current pump snapshot.
func (h *Handler) respondWithState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	resp["state"] = h.services.Pump.Snapshot()
	c.JSON(http.StatusOK, resp)
}

// @Summary      Get pump state
// @Tags         pump
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/pump/state [get]
// @Security     BearerAuth
func (h *Handler) getPumpState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Pump.Snapshot())
}

// @Summary      Switch mode
// @Description  Switching to AUTOMATIC cancels any active manual pulse.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body   SetModeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/pump/mode [post]
// @Security     BearerAuth
func (h *Handler) setMode(c *gin.Context) {
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.ModeControl.SwitchTo(ctx, pump.Mode(req.Mode)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondWithState(c, statusModeSet, gin.H{"mode": req.Mode})
}

// @Summary      Toggle pump
// @Description  Manual ON/OFF. Legal only in MANUAL mode with no command pending.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body   ToggleRequest  true  "Toggle payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/pump/toggle [post]
// @Security     BearerAuth
func (h *Handler) togglePump(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.On == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: expected {\"on\":bool}"})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Pump.Toggle(ctx, *req.On); err != nil {
		h.jsonError(c, "pump_toggle_failed", err, "target_on", *req.On)
		return
	}
	h.respondWithState(c, statusToggled, gin.H{})
}

// @Summary      Pulse pump
// @Description  Activate for N seconds (1–600); the device is the authority on auto-off.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body   PulseRequest  true  "Pulse payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/pump/pulse [post]
// @Security     BearerAuth
func (h *Handler) pulsePump(c *gin.Context) {
	var req PulseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Pump.Pulse(ctx, req.DurationSec); err != nil {
		h.jsonError(c, "pump_pulse_failed", err, "duration_sec", req.DurationSec)
		return
	}
	h.respondWithState(c, statusPulsed, gin.H{"duration_sec": req.DurationSec})
}
