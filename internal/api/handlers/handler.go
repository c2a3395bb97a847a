package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/engine"
	"github.com/rcmelo/jornada/internal/models"
	"github.com/rcmelo/jornada/internal/repository"
	"github.com/rcmelo/jornada/pkg/ws"
)

// Handler owns the HTTP surface.
type Handler struct {
	logger          *zap.Logger
	vehicleRepo     *repository.VehicleRepository
	driverRepo      *repository.DriverRepository
	positionRepo    *repository.PositionRepository
	eventRepo       *repository.EventRepository
	eventTypeRepo   *repository.EventTypeRepository
	integrationRepo *repository.IntegrationRepository
	tripEngine      *engine.TripEngine
	correlator      *engine.Correlator
	analyzer        *engine.PatternAnalyzer
	eventService    *engine.EventService
	wsHub           *ws.Hub
	upgrader        websocket.Upgrader
}

// NewHandler wires the handler.
func NewHandler(
	logger *zap.Logger,
	vehicleRepo *repository.VehicleRepository,
	driverRepo *repository.DriverRepository,
	positionRepo *repository.PositionRepository,
	eventRepo *repository.EventRepository,
	eventTypeRepo *repository.EventTypeRepository,
	integrationRepo *repository.IntegrationRepository,
	tripEngine *engine.TripEngine,
	correlator *engine.Correlator,
	analyzer *engine.PatternAnalyzer,
	eventService *engine.EventService,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:          logger,
		vehicleRepo:     vehicleRepo,
		driverRepo:      driverRepo,
		positionRepo:    positionRepo,
		eventRepo:       eventRepo,
		eventTypeRepo:   eventTypeRepo,
		integrationRepo: integrationRepo,
		tripEngine:      tripEngine,
		correlator:      correlator,
		analyzer:        analyzer,
		eventService:    eventService,
		wsHub:           wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes mounts the API.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// vehicles and positions
		api.GET("/vehicles", h.ListVehicles)
		api.POST("/vehicles", h.CreateVehicle)
		api.GET("/vehicles/:id", h.GetVehicle)
		api.GET("/vehicles/:id/positions", h.ListPositions)
		api.POST("/vehicles/:id/positions", h.ImportPositions)

		// classification
		api.POST("/vehicles/:id/classify", h.ClassifyVehicle)
		api.GET("/vehicles/:id/suggestions", h.GetSuggestions)

		// events
		api.GET("/vehicles/:id/events", h.ListEvents)
		api.POST("/events", h.CreateEvent)
		api.GET("/events/stats", h.GetEventStats)
		api.GET("/events/:id", h.GetEvent)
		api.PUT("/events/:id", h.UpdateEvent)
		api.DELETE("/events/:id", h.DeleteEvent)
		api.POST("/events/:id/approve", h.ApproveEvent)
		api.POST("/events/:id/reject", h.RejectEvent)
		api.GET("/event-types", h.ListEventTypes)

		// drivers
		api.GET("/drivers", h.ListDrivers)
		api.POST("/drivers", h.CreateDriver)
		api.GET("/drivers/:id/history", h.GetDriverHistory)

		// external integrations
		api.POST("/integrations/fuel/import", h.ImportFuel)
		api.POST("/integrations/checklist/import", h.ImportChecklists)
		api.POST("/integrations/maintenance/import", h.ImportMaintenance)
		api.POST("/integrations/fuel/process", h.ProcessFuel)
		api.POST("/integrations/checklist/process", h.ProcessChecklists)
		api.POST("/integrations/maintenance/process", h.ProcessMaintenance)
		api.GET("/integrations/stats", h.GetIntegrationStats)
	}

	r.GET("/ws", h.HandleWebSocket)

	r.GET("/health", h.HealthCheck)
}

// HandleWebSocket upgrades the connection and hands it to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}

// idParam parses the :id path parameter.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// timeWindow parses optional RFC 3339 "start" and "end" query
// parameters.
func timeWindow(c *gin.Context) (*time.Time, *time.Time, bool) {
	var from, to *time.Time
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start time"})
			return nil, nil, false
		}
		from = &t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end time"})
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}

// respondError maps engine and repository errors onto status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrSyncedEvent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrConfig), errors.Is(err, classifier.ErrCatalogMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
