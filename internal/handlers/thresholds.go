package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetThresholdRequest sets one trigger value. Unknown parameter names are
// accepted and forwarded as-is.
type SetThresholdRequest struct {
	Parameter string   `json:"parameter" binding:"required" example:"soilPercent"`
	Value     *float64 `json:"value" binding:"required" example:"40"`
}

// @Summary      Get thresholds
// @Tags         thresholds
// @Produce      json
// @Success      200  {object}  map[string]float64
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/thresholds [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Thresholds.Snapshot())
}

// @Summary      Set threshold
// @Description  Stores one trigger value and queues a coalesced save to the remote store.
// @Tags         thresholds
// @Accept       json
// @Produce      json
// @Param        body  body   SetThresholdRequest  true  "Threshold payload"
// @Success      200   {object}  map[string]float64
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/thresholds [post]
// @Security     BearerAuth
func (h *Handler) setThreshold(c *gin.Context) {
	var req SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: expected {\"parameter\":string,\"value\":number}"})
		return
	}
	if err := h.services.Thresholds.Set(c.Request.Context(), req.Parameter, *req.Value); err != nil {
		h.jsonError(c, "threshold_set_failed", err, "parameter", req.Parameter)
		return
	}
	c.JSON(http.StatusOK, h.services.Thresholds.Snapshot())
}

// @Summary      Save thresholds to remote store
// @Tags         thresholds
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/thresholds/save [post]
// @Security     BearerAuth
func (h *Handler) saveThresholds(c *gin.Context) {
	if err := h.services.Thresholds.Save(c.Request.Context()); err != nil {
		h.jsonError(c, "thresholds_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
