package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClassifyVehicle runs the classification pipeline over the vehicle's
// pending positions, optionally bounded by start/end query parameters,
// and pushes the produced events to connected dashboards.
func (h *Handler) ClassifyVehicle(c *gin.Context) {
	vehicleID, ok := idParam(c)
	if !ok {
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}

	events, err := h.tripEngine.ClassifyVehicle(c.Request.Context(), vehicleID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if len(events) > 0 {
		h.wsHub.BroadcastClassification(vehicleID, events)
	}

	h.logger.Info("classification requested",
		zap.Int64("vehicle_id", vehicleID), zap.Int("events", len(events)))
	c.JSON(http.StatusOK, gin.H{
		"vehicle_id": vehicleID,
		"events":     events,
		"count":      len(events),
	})
}

// GetSuggestions lists review suggestions for the vehicle's unapproved
// auto-classified events.
func (h *Handler) GetSuggestions(c *gin.Context) {
	vehicleID, ok := idParam(c)
	if !ok {
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}

	suggestions, err := h.analyzer.SuggestImprovements(c.Request.Context(), vehicleID, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vehicle_id":  vehicleID,
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// GetDriverHistory returns the aggregated history for a driver over the
// trailing "days" query parameter (default 30).
func (h *Handler) GetDriverHistory(c *gin.Context) {
	driverID, ok := idParam(c)
	if !ok {
		return
	}

	days := 30
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		days = parsed
	}

	if _, err := h.driverRepo.GetByID(c.Request.Context(), driverID); err != nil {
		h.respondError(c, err)
		return
	}

	history, err := h.analyzer.AnalyzeDriverHistory(c.Request.Context(), driverID, days)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}
