package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/models"
)

// importCounters is the partial-success result shape every import
// endpoint returns: the batch always continues past bad records.
type importCounters struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Correlated int `json:"correlated"`
	Skipped    int `json:"skipped"`
}

type fuelPayload struct {
	VehiclePlate string    `json:"vehicle_plate"`
	RecordedAt   time.Time `json:"recorded_at"`
	Station      string    `json:"station"`
	Address      string    `json:"address"`
	Liters       *float64  `json:"liters"`
	Cost         *float64  `json:"cost"`
}

type importFuelRequest struct {
	Records []fuelPayload `json:"records" binding:"required"`
}

// ImportFuel ingests a batch of fuel purchases, deduplicates them and
// tries to correlate each new record with an existing fueling event.
func (h *Handler) ImportFuel(c *gin.Context) {
	var req importFuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records array is required"})
		return
	}

	ctx := c.Request.Context()
	counters := importCounters{}
	for _, p := range req.Records {
		if p.VehiclePlate == "" || p.RecordedAt.IsZero() {
			counters.Skipped++
			continue
		}
		vehicle, err := h.vehicleRepo.GetByPlate(ctx, p.VehiclePlate)
		if err != nil {
			h.logger.Warn("fuel record skipped, unknown plate",
				zap.String("plate", p.VehiclePlate), zap.Error(err))
			counters.Skipped++
			continue
		}

		rec := &models.FuelRecord{
			VehicleID:  vehicle.ID,
			RecordedAt: p.RecordedAt,
			Station:    p.Station,
			Address:    p.Address,
			Liters:     p.Liters,
			Cost:       p.Cost,
		}
		exists, err := h.integrationRepo.FuelExists(ctx, vehicle.ID, rec)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if exists {
			counters.Duplicates++
			continue
		}
		if err := h.integrationRepo.CreateFuel(ctx, rec); err != nil {
			h.respondError(c, err)
			return
		}
		counters.Imported++

		matched, err := h.correlator.CorrelateFuel(ctx, rec)
		if err != nil {
			h.logger.Warn("fuel correlation failed", zap.Int64("record_id", rec.ID), zap.Error(err))
			continue
		}
		if matched {
			counters.Correlated++
		}
	}

	h.logger.Info("fuel records imported",
		zap.Int("imported", counters.Imported), zap.Int("correlated", counters.Correlated),
		zap.Int("duplicates", counters.Duplicates), zap.Int("skipped", counters.Skipped))
	c.JSON(http.StatusOK, counters)
}

type checklistPayload struct {
	VehiclePlate string    `json:"vehicle_plate"`
	DriverCPF    string    `json:"driver_cpf"`
	RecordedAt   time.Time `json:"recorded_at"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
}

type importChecklistsRequest struct {
	Records []checklistPayload `json:"records" binding:"required"`
}

// ImportChecklists ingests checklist submissions, resolving the driver
// by CPF and the vehicle by plate.
func (h *Handler) ImportChecklists(c *gin.Context) {
	var req importChecklistsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records array is required"})
		return
	}

	ctx := c.Request.Context()
	counters := importCounters{}
	for _, p := range req.Records {
		if p.VehiclePlate == "" || p.DriverCPF == "" || p.RecordedAt.IsZero() {
			counters.Skipped++
			continue
		}
		vehicle, err := h.vehicleRepo.GetByPlate(ctx, p.VehiclePlate)
		if err != nil {
			counters.Skipped++
			continue
		}
		driver, err := h.driverRepo.GetByCPF(ctx, p.DriverCPF)
		if err != nil {
			h.logger.Warn("checklist skipped, unknown driver",
				zap.String("cpf", p.DriverCPF), zap.Error(err))
			counters.Skipped++
			continue
		}

		rec := &models.ChecklistRecord{
			VehicleID:  vehicle.ID,
			DriverID:   driver.ID,
			RecordedAt: p.RecordedAt,
			Kind:       p.Kind,
			Status:     p.Status,
			Notes:      p.Notes,
		}
		exists, err := h.integrationRepo.ChecklistExists(ctx, rec)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if exists {
			counters.Duplicates++
			continue
		}
		if err := h.integrationRepo.CreateChecklist(ctx, rec); err != nil {
			h.respondError(c, err)
			return
		}
		counters.Imported++

		matched, err := h.correlator.CorrelateChecklist(ctx, rec)
		if err != nil {
			h.logger.Warn("checklist correlation failed", zap.Int64("record_id", rec.ID), zap.Error(err))
			continue
		}
		if matched {
			counters.Correlated++
		}
	}

	h.logger.Info("checklist records imported",
		zap.Int("imported", counters.Imported), zap.Int("correlated", counters.Correlated),
		zap.Int("duplicates", counters.Duplicates), zap.Int("skipped", counters.Skipped))
	c.JSON(http.StatusOK, counters)
}

type maintenancePayload struct {
	VehiclePlate string    `json:"vehicle_plate"`
	RecordedAt   time.Time `json:"recorded_at"`
	Kind         string    `json:"kind"`
	Description  string    `json:"description"`
	Workshop     string    `json:"workshop"`
	Address      string    `json:"address"`
}

type importMaintenanceRequest struct {
	Records []maintenancePayload `json:"records" binding:"required"`
}

// ImportMaintenance ingests maintenance tickets.
func (h *Handler) ImportMaintenance(c *gin.Context) {
	var req importMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records array is required"})
		return
	}

	ctx := c.Request.Context()
	counters := importCounters{}
	for _, p := range req.Records {
		if p.VehiclePlate == "" || p.RecordedAt.IsZero() {
			counters.Skipped++
			continue
		}
		vehicle, err := h.vehicleRepo.GetByPlate(ctx, p.VehiclePlate)
		if err != nil {
			counters.Skipped++
			continue
		}

		rec := &models.MaintenanceRecord{
			VehicleID:   vehicle.ID,
			RecordedAt:  p.RecordedAt,
			Kind:        p.Kind,
			Description: p.Description,
			Workshop:    p.Workshop,
			Address:     p.Address,
		}
		exists, err := h.integrationRepo.MaintenanceExists(ctx, rec)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if exists {
			counters.Duplicates++
			continue
		}
		if err := h.integrationRepo.CreateMaintenance(ctx, rec); err != nil {
			h.respondError(c, err)
			return
		}
		counters.Imported++

		matched, err := h.correlator.CorrelateMaintenance(ctx, rec)
		if err != nil {
			h.logger.Warn("maintenance correlation failed", zap.Int64("record_id", rec.ID), zap.Error(err))
			continue
		}
		if matched {
			counters.Correlated++
		}
	}

	h.logger.Info("maintenance records imported",
		zap.Int("imported", counters.Imported), zap.Int("correlated", counters.Correlated),
		zap.Int("duplicates", counters.Duplicates), zap.Int("skipped", counters.Skipped))
	c.JSON(http.StatusOK, counters)
}

// ProcessFuel sweeps pending fuel records into events.
func (h *Handler) ProcessFuel(c *gin.Context) {
	result, err := h.correlator.ProcessPendingFuel(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProcessChecklists sweeps pending checklist records into events.
func (h *Handler) ProcessChecklists(c *gin.Context) {
	result, err := h.correlator.ProcessPendingChecklist(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProcessMaintenance sweeps pending maintenance records into events.
func (h *Handler) ProcessMaintenance(c *gin.Context) {
	result, err := h.correlator.ProcessPendingMaintenance(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetIntegrationStats reports totals per external record kind.
func (h *Handler) GetIntegrationStats(c *gin.Context) {
	stats, err := h.integrationRepo.GetStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
