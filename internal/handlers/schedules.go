package handlers

import (
	"net/http"
	"strconv"

	pump "pump_control"

	"github.com/gin-gonic/gin"
)

// AddScheduleRequest carries a watering window in the "HH:MM" wire form.
type AddScheduleRequest struct {
	From string `json:"from" binding:"required" example:"06:00"`
	To   string `json:"to" binding:"required" example:"06:05"`
}

// @Summary      List schedule windows
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, windows"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) listSchedules(c *gin.Context) {
	ws := h.services.Schedules.List()
	c.JSON(http.StatusOK, gin.H{"count": len(ws), "windows": ws})
}

// @Summary      Add schedule window
// @Description  Rejects malformed ("from" >= "to") and overlapping windows before any network call.
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body   AddScheduleRequest  true  "Window payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/schedules [post]
// @Security     BearerAuth
func (h *Handler) addSchedule(c *gin.Context) {
	var req AddScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	w, err := parseWindow(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.services.Schedules.Add(c.Request.Context(), w); err != nil {
		h.jsonError(c, "schedule_add_failed", err, "from", req.From, "to", req.To)
		return
	}
	ws := h.services.Schedules.List()
	c.JSON(http.StatusOK, gin.H{"count": len(ws), "windows": ws})
}

// @Summary      Remove schedule window
// @Description  Index refers to the position in the sorted set.
// @Tags         schedules
// @Produce      json
// @Param        index  path  int  true  "Window index"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/schedules/{index} [delete]
// @Security     BearerAuth
func (h *Handler) removeSchedule(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	if err := h.services.Schedules.Remove(c.Request.Context(), index); err != nil {
		h.jsonError(c, "schedule_remove_failed", err, "index", index)
		return
	}
	ws := h.services.Schedules.List()
	c.JSON(http.StatusOK, gin.H{"count": len(ws), "windows": ws})
}

// @Summary      Save schedules to remote store
// @Tags         schedules
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/schedules/save [post]
// @Security     BearerAuth
func (h *Handler) saveSchedules(c *gin.Context) {
	if err := h.services.Schedules.Save(c.Request.Context()); err != nil {
		h.jsonError(c, "schedules_save_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func parseWindow(req AddScheduleRequest) (pump.ScheduleWindow, error) {
	start, err := pump.ParseClock(req.From)
	if err != nil {
		return pump.ScheduleWindow{}, err
	}
	end, err := pump.ParseClock(req.To)
	if err != nil {
		return pump.ScheduleWindow{}, err
	}
	return pump.ScheduleWindow{Start: start, End: end}, nil
}
