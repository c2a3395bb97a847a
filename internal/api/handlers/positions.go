package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/models"
)

type positionPayload struct {
	RecordedAt time.Time `json:"recorded_at"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Speed      int       `json:"speed"`
	Address    string    `json:"address"`
	Landmark   string    `json:"landmark"`
}

type importPositionsRequest struct {
	Positions []positionPayload `json:"positions" binding:"required"`
}

// ImportPositions ingests a batch of raw tracker samples for a vehicle.
// Malformed entries are skipped and counted; the batch continues.
func (h *Handler) ImportPositions(c *gin.Context) {
	vehicleID, ok := idParam(c)
	if !ok {
		return
	}

	var req importPositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "positions array is required"})
		return
	}

	if _, err := h.vehicleRepo.GetByID(c.Request.Context(), vehicleID); err != nil {
		h.respondError(c, err)
		return
	}

	imported, skipped := 0, 0
	for _, p := range req.Positions {
		if p.RecordedAt.IsZero() || p.Speed < 0 {
			skipped++
			continue
		}
		pos := &models.Position{
			VehicleID:  vehicleID,
			RecordedAt: p.RecordedAt,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			Speed:      p.Speed,
			Address:    p.Address,
			Landmark:   p.Landmark,
		}
		if err := h.positionRepo.Create(c.Request.Context(), pos); err != nil {
			h.logger.Warn("position skipped",
				zap.Int64("vehicle_id", vehicleID),
				zap.Time("recorded_at", p.RecordedAt),
				zap.Error(err))
			skipped++
			continue
		}
		imported++
	}

	h.logger.Info("positions imported",
		zap.Int64("vehicle_id", vehicleID),
		zap.Int("imported", imported), zap.Int("skipped", skipped))
	c.JSON(http.StatusOK, gin.H{
		"vehicle_id": vehicleID,
		"imported":   imported,
		"skipped":    skipped,
	})
}

// ListPositions returns a vehicle's samples in a time window.
func (h *Handler) ListPositions(c *gin.Context) {
	vehicleID, ok := idParam(c)
	if !ok {
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}

	positions, err := h.positionRepo.ListByVehicle(c.Request.Context(), vehicleID, from, to, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}
