package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/models"
)

// ListEvents returns a vehicle's events, optionally bounded by
// start/end query parameters.
func (h *Handler) ListEvents(c *gin.Context) {
	vehicleID, ok := idParam(c)
	if !ok {
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}

	events, err := h.eventRepo.ListByVehicle(c.Request.Context(), vehicleID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// GetEvent fetches one event by id.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	event, err := h.eventRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

type createEventRequest struct {
	VehicleID      int64      `json:"vehicle_id" binding:"required"`
	DriverID       int64      `json:"driver_id" binding:"required"`
	EventTypeID    int64      `json:"event_type_id" binding:"required"`
	StartTime      time.Time  `json:"start_time" binding:"required"`
	EndTime        *time.Time `json:"end_time"`
	StartLatitude  *float64   `json:"start_latitude"`
	StartLongitude *float64   `json:"start_longitude"`
	EndLatitude    *float64   `json:"end_latitude"`
	EndLongitude   *float64   `json:"end_longitude"`
	StartAddress   string     `json:"start_address"`
	EndAddress     string     `json:"end_address"`
	Observations   string     `json:"observations"`
}

// CreateEvent registers an operator-created event. Vehicle, driver and
// event type must all exist.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_id, driver_id, event_type_id and start_time are required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.vehicleRepo.GetByID(ctx, req.VehicleID); err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := h.driverRepo.GetByID(ctx, req.DriverID); err != nil {
		h.respondError(c, err)
		return
	}

	event := &models.JourneyEvent{
		VehicleID:      req.VehicleID,
		DriverID:       req.DriverID,
		EventTypeID:    req.EventTypeID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		StartLatitude:  req.StartLatitude,
		StartLongitude: req.StartLongitude,
		EndLatitude:    req.EndLatitude,
		EndLongitude:   req.EndLongitude,
		StartAddress:   req.StartAddress,
		EndAddress:     req.EndAddress,
		Observations:   req.Observations,
	}
	if err := h.eventService.CreateManual(ctx, event); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

type updateEventRequest struct {
	EventTypeID    *int64     `json:"event_type_id"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	StartLatitude  *float64   `json:"start_latitude"`
	StartLongitude *float64   `json:"start_longitude"`
	EndLatitude    *float64   `json:"end_latitude"`
	EndLongitude   *float64   `json:"end_longitude"`
	StartAddress   *string    `json:"start_address"`
	EndAddress     *string    `json:"end_address"`
	Observations   *string    `json:"observations"`
}

// UpdateEvent rewrites the provided fields of an event. Editing a
// manual event withdraws its approval.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	event, err := h.eventRepo.GetByID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.EventTypeID != nil {
		event.EventTypeID = *req.EventTypeID
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = req.EndTime
	}
	if req.StartLatitude != nil {
		event.StartLatitude = req.StartLatitude
	}
	if req.StartLongitude != nil {
		event.StartLongitude = req.StartLongitude
	}
	if req.EndLatitude != nil {
		event.EndLatitude = req.EndLatitude
	}
	if req.EndLongitude != nil {
		event.EndLongitude = req.EndLongitude
	}
	if req.StartAddress != nil {
		event.StartAddress = *req.StartAddress
	}
	if req.EndAddress != nil {
		event.EndAddress = *req.EndAddress
	}
	if req.Observations != nil {
		event.Observations = *req.Observations
	}

	if err := h.eventService.Revise(ctx, event); err != nil {
		h.respondError(c, err)
		return
	}

	// Re-read so the denormalized type name reflects a type change.
	updated, err := h.eventRepo.GetByID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required"`
}

// ApproveEvent marks an event approved for external synchronization.
func (h *Handler) ApproveEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved_by is required"})
		return
	}

	event, err := h.eventRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if event.Approved {
		c.JSON(http.StatusOK, event)
		return
	}

	event.Approve(req.ApprovedBy)
	if err := h.eventRepo.Update(c.Request.Context(), event); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("event approved",
		zap.Int64("event_id", event.ID), zap.String("approved_by", req.ApprovedBy))
	c.JSON(http.StatusOK, event)
}

// RejectEvent sends an event back to review: the approval is cleared
// and a copy already synced externally is invalidated.
func (h *Handler) RejectEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	event, err := h.eventService.Reject(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("event rejected", zap.Int64("event_id", id))
	c.JSON(http.StatusOK, event)
}

// DeleteEvent removes an event. Events already synced externally are
// refused with 409.
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetEventStats aggregates event counts, optionally filtered by a
// vehicle_id query parameter and a start/end window.
func (h *Handler) GetEventStats(c *gin.Context) {
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}

	var vehicleID *int64
	if v := c.Query("vehicle_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle_id"})
			return
		}
		vehicleID = &parsed
	}

	stats, err := h.eventRepo.Stats(c.Request.Context(), vehicleID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListEventTypes returns the full event-type catalog.
func (h *Handler) ListEventTypes(c *gin.Context) {
	types, err := h.eventTypeRepo.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_types": types, "count": len(types)})
}

// ListVehicles returns the active fleet.
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.vehicleRepo.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles, "count": len(vehicles)})
}

// GetVehicle fetches one vehicle by id.
func (h *Handler) GetVehicle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	vehicle, err := h.vehicleRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, vehicle)
}

type createVehicleRequest struct {
	Plate    string `json:"plate" binding:"required"`
	Label    string `json:"label"`
	DriverID *int64 `json:"driver_id"`
}

// CreateVehicle registers a fleet vehicle.
func (h *Handler) CreateVehicle(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plate is required"})
		return
	}

	ctx := c.Request.Context()
	if req.DriverID != nil {
		if _, err := h.driverRepo.GetByID(ctx, *req.DriverID); err != nil {
			h.respondError(c, err)
			return
		}
	}

	vehicle := &models.Vehicle{
		Plate:    req.Plate,
		Label:    req.Label,
		DriverID: req.DriverID,
		Active:   true,
	}
	if err := h.vehicleRepo.Create(ctx, vehicle); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("vehicle created",
		zap.Int64("vehicle_id", vehicle.ID), zap.String("plate", vehicle.Plate))
	c.JSON(http.StatusCreated, vehicle)
}

// ListDrivers returns the active drivers.
func (h *Handler) ListDrivers(c *gin.Context) {
	drivers, err := h.driverRepo.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drivers": drivers, "count": len(drivers)})
}

type createDriverRequest struct {
	Name    string     `json:"name" binding:"required"`
	CPF     string     `json:"cpf" binding:"required"`
	Badge   string     `json:"badge"`
	Role    string     `json:"role"`
	HiredAt *time.Time `json:"hired_at"`
}

// CreateDriver registers a driver.
func (h *Handler) CreateDriver(c *gin.Context) {
	var req createDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and cpf are required"})
		return
	}

	driver := &models.Driver{
		Name:    req.Name,
		CPF:     req.CPF,
		Badge:   req.Badge,
		Role:    req.Role,
		HiredAt: req.HiredAt,
		Active:  true,
	}
	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("driver created",
		zap.Int64("driver_id", driver.ID), zap.String("name", driver.Name))
	c.JSON(http.StatusCreated, driver)
}
