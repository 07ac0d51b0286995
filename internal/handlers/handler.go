package handlers

import (
	"errors"
	"net/http"

	pump "pump_control"
	"pump_control/internal/logger"
	"pump_control/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pump-state stream (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	h.registerAPIRoutes(router)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authMiddleware)
	{
		h.registerPumpRoutes(api)
		h.registerScheduleRoutes(api)
		h.registerThresholdRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerPumpRoutes(api *gin.RouterGroup) {
	p := api.Group("/pump")
	{
		p.GET("/state", h.getPumpState)
		// Body example: {"mode":"AUTOMATIC"}
		p.POST("/mode", h.setMode)
		p.POST("/toggle", h.togglePump)
		// Body example: {"duration_sec":10}
		p.POST("/pulse", h.pulsePump)
	}
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	s := api.Group("/schedules")
	{
		s.GET("", h.listSchedules)
		s.POST("", h.addSchedule)
		s.DELETE("/:index", h.removeSchedule)
		s.POST("/save", h.saveSchedules)
	}
}

func (h *Handler) registerThresholdRoutes(api *gin.RouterGroup) {
	t := api.Group("/thresholds")
	{
		t.GET("", h.getThresholds)
		t.POST("", h.setThreshold)
		t.POST("/save", h.saveThresholds)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusForError maps domain errors to HTTP codes. Validation failures are
// the caller's fault, pending/mode conflicts are 409, and remote command
// failures surface as bad gateway.
func statusForError(err error) int {
	switch {
	case errors.Is(err, pump.ErrInvalidWindow),
		errors.Is(err, pump.ErrInvalidDuration),
		errors.Is(err, pump.ErrInvalidThreshold),
		errors.Is(err, pump.ErrOverlap):
		return http.StatusBadRequest
	case errors.Is(err, pump.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pump.ErrCommandInProgress),
		errors.Is(err, pump.ErrWrongMode),
		errors.Is(err, pump.ErrPumpRunning):
		return http.StatusConflict
	case errors.Is(err, pump.ErrCommandFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// jsonError logs the error and writes it with the mapped status code.
func (h *Handler) jsonError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
