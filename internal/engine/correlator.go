package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/models"
)

// Symmetric correlation tolerances, minutes around the record timestamp.
const (
	FuelToleranceMin        = 30
	ChecklistToleranceMin   = 15
	MaintenanceToleranceMin = 60
)

// Assumed durations for events synthesized from unmatched records.
const (
	synthFuelDurationMin        = 20
	synthChecklistDurationMin   = 15
	synthPreventiveDurationMin  = 180
	synthCorrectiveDurationMin  = 240
	synthMaintenanceDurationMin = 120
)

// ProcessResult reports one sweep over pending records of a single kind.
// Every swept record ends up linked to exactly one event, either by a
// prior correlation or by synthesis here; records that cannot be
// resolved (vehicle gone, no assigned driver) are skipped and counted.
type ProcessResult struct {
	Linked      int `json:"linked"`
	Synthesized int `json:"synthesized"`
	Skipped     int `json:"skipped"`
}

// Correlator links imported external records (fuel, checklist,
// maintenance) to existing journey events inside a type-specific time
// tolerance, and synthesizes events for records nothing matched.
type Correlator struct {
	events       EventStore
	vehicles     VehicleStore
	catalog      CatalogStore
	integrations IntegrationStore
	logger       *zap.Logger
}

// NewCorrelator wires the correlator.
func NewCorrelator(events EventStore, vehicles VehicleStore, catalog CatalogStore, integrations IntegrationStore, logger *zap.Logger) *Correlator {
	return &Correlator{
		events:       events,
		vehicles:     vehicles,
		catalog:      catalog,
		integrations: integrations,
		logger:       logger,
	}
}

func window(at time.Time, toleranceMin int) (time.Time, time.Time) {
	d := time.Duration(toleranceMin) * time.Minute
	return at.Add(-d), at.Add(d)
}

func fval(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// CorrelateFuel links a fuel record to the first fueling event of the
// same vehicle starting within ±30 min of the purchase, appending the
// purchase data to the event's observation text. Already-linked records
// are a no-op. Returns whether the record is linked.
func (c *Correlator) CorrelateFuel(ctx context.Context, rec *models.FuelRecord) (bool, error) {
	if rec.EventID != nil {
		return true, nil
	}

	from, to := window(rec.RecordedAt, FuelToleranceMin)
	matches, err := c.events.FindByVehicleAndType(ctx, rec.VehicleID, string(classifier.CodeFueling), from, to)
	if err != nil {
		return false, fmt.Errorf("find fueling events for vehicle %d: %w", rec.VehicleID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	// First by start time, not nearest.
	event := matches[0]
	if event.Observations == "" {
		event.Observations = fmt.Sprintf("Abastecimento: %.1fL - R$ %.2f", fval(rec.Liters), fval(rec.Cost))
	} else {
		event.AppendObservation(fmt.Sprintf("Dados: %.1fL - R$ %.2f", fval(rec.Liters), fval(rec.Cost)))
	}
	if err := c.events.Update(ctx, event); err != nil {
		return false, fmt.Errorf("update event %d: %w", event.ID, err)
	}

	rec.EventID = &event.ID
	if err := c.integrations.UpdateFuel(ctx, rec); err != nil {
		return false, fmt.Errorf("link fuel record %d: %w", rec.ID, err)
	}

	c.logger.Debug("fuel record correlated",
		zap.Int64("record_id", rec.ID), zap.Int64("event_id", event.ID))
	return true, nil
}

// CorrelateChecklist links a checklist record to the first checklist
// event of the same vehicle AND driver starting within ±15 min of the
// submission.
func (c *Correlator) CorrelateChecklist(ctx context.Context, rec *models.ChecklistRecord) (bool, error) {
	if rec.EventID != nil {
		return true, nil
	}

	from, to := window(rec.RecordedAt, ChecklistToleranceMin)
	matches, err := c.events.FindByVehicleDriverAndType(ctx, rec.VehicleID, rec.DriverID, string(classifier.CodeChecklist), from, to)
	if err != nil {
		return false, fmt.Errorf("find checklist events for vehicle %d: %w", rec.VehicleID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	event := matches[0]
	if event.Observations == "" {
		event.Observations = fmt.Sprintf("Check List %s - Status: %s", rec.Kind, rec.Status)
	} else {
		event.AppendObservation(fmt.Sprintf("Status: %s", rec.Status))
	}
	if err := c.events.Update(ctx, event); err != nil {
		return false, fmt.Errorf("update event %d: %w", event.ID, err)
	}

	rec.EventID = &event.ID
	if err := c.integrations.UpdateChecklist(ctx, rec); err != nil {
		return false, fmt.Errorf("link checklist record %d: %w", rec.ID, err)
	}

	c.logger.Debug("checklist record correlated",
		zap.Int64("record_id", rec.ID), zap.Int64("event_id", event.ID))
	return true, nil
}

// CorrelateMaintenance links a maintenance record to the first
// maintenance event of the same vehicle starting within ±60 min of the
// ticket.
func (c *Correlator) CorrelateMaintenance(ctx context.Context, rec *models.MaintenanceRecord) (bool, error) {
	if rec.EventID != nil {
		return true, nil
	}

	from, to := window(rec.RecordedAt, MaintenanceToleranceMin)
	matches, err := c.events.FindByVehicleAndType(ctx, rec.VehicleID, string(classifier.CodeMaintenance), from, to)
	if err != nil {
		return false, fmt.Errorf("find maintenance events for vehicle %d: %w", rec.VehicleID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	event := matches[0]
	if event.Observations == "" {
		event.Observations = fmt.Sprintf("Manutenção em %s: %s", rec.Workshop, rec.Description)
	} else {
		event.AppendObservation(fmt.Sprintf("%s: %s", rec.Workshop, rec.Description))
	}
	if err := c.events.Update(ctx, event); err != nil {
		return false, fmt.Errorf("update event %d: %w", event.ID, err)
	}

	rec.EventID = &event.ID
	if err := c.integrations.UpdateMaintenance(ctx, rec); err != nil {
		return false, fmt.Errorf("link maintenance record %d: %w", rec.ID, err)
	}

	c.logger.Debug("maintenance record correlated",
		zap.Int64("record_id", rec.ID), zap.Int64("event_id", event.ID))
	return true, nil
}

// driverFor resolves the assigned driver of a vehicle for synthesis.
// The bool is false when the vehicle is gone or has no driver.
func (c *Correlator) driverFor(ctx context.Context, vehicleID int64) (int64, bool) {
	vehicle, err := c.vehicles.GetByID(ctx, vehicleID)
	if err != nil || vehicle.DriverID == nil {
		return 0, false
	}
	return *vehicle.DriverID, true
}

// synthesize builds, persists and returns an event created from an
// unmatched external record.
func (c *Correlator) synthesize(ctx context.Context, catalog classifier.Catalog, code classifier.TypeCode,
	vehicleID, driverID int64, at time.Time, durationMin int, address, observation string) (*models.JourneyEvent, error) {

	def, err := catalog.Lookup(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	end := at.Add(time.Duration(durationMin) * time.Minute)
	event := &models.JourneyEvent{
		VehicleID:      vehicleID,
		DriverID:       driverID,
		EventTypeID:    def.ID,
		TypeName:       def.Name,
		StartTime:      at,
		EndTime:        &end,
		DurationMin:    &durationMin,
		StartAddress:   address,
		EndAddress:     address,
		Observations:   observation,
		AutoClassified: true,
	}
	if err := c.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create synthesized event: %w", err)
	}
	return event, nil
}

// ProcessPendingFuel sweeps unprocessed fuel records: already-linked ones
// are just marked processed, the rest get a synthesized 20-minute
// fueling event.
func (c *Correlator) ProcessPendingFuel(ctx context.Context) (*ProcessResult, error) {
	pending, err := c.integrations.ListPendingFuel(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending fuel records: %w", err)
	}
	catalog, err := c.catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event type catalog: %w", err)
	}

	result := &ProcessResult{}
	for _, rec := range pending {
		if rec.EventID == nil {
			driverID, ok := c.driverFor(ctx, rec.VehicleID)
			if !ok {
				c.logger.Warn("fuel record skipped, vehicle has no driver",
					zap.Int64("record_id", rec.ID), zap.Int64("vehicle_id", rec.VehicleID))
				result.Skipped++
				continue
			}
			observation := fmt.Sprintf("Abastecimento automático - %s - %.1fL", rec.Station, fval(rec.Liters))
			event, err := c.synthesize(ctx, catalog, classifier.CodeFueling,
				rec.VehicleID, driverID, rec.RecordedAt, synthFuelDurationMin, rec.Address, observation)
			if err != nil {
				return result, err
			}
			rec.EventID = &event.ID
			result.Synthesized++
		} else {
			result.Linked++
		}

		rec.Processed = true
		if err := c.integrations.UpdateFuel(ctx, rec); err != nil {
			return result, fmt.Errorf("mark fuel record %d processed: %w", rec.ID, err)
		}
	}
	return result, nil
}

// ProcessPendingChecklist sweeps unprocessed checklist records,
// synthesizing a 15-minute checklist event for each unlinked one.
func (c *Correlator) ProcessPendingChecklist(ctx context.Context) (*ProcessResult, error) {
	pending, err := c.integrations.ListPendingChecklist(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending checklist records: %w", err)
	}
	catalog, err := c.catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event type catalog: %w", err)
	}

	result := &ProcessResult{}
	for _, rec := range pending {
		if rec.EventID == nil {
			observation := fmt.Sprintf("Check List %s - Status: %s", rec.Kind, rec.Status)
			event, err := c.synthesize(ctx, catalog, classifier.CodeChecklist,
				rec.VehicleID, rec.DriverID, rec.RecordedAt, synthChecklistDurationMin, "", observation)
			if err != nil {
				return result, err
			}
			rec.EventID = &event.ID
			result.Synthesized++
		} else {
			result.Linked++
		}

		rec.Processed = true
		if err := c.integrations.UpdateChecklist(ctx, rec); err != nil {
			return result, fmt.Errorf("mark checklist record %d processed: %w", rec.ID, err)
		}
	}
	return result, nil
}

// ProcessPendingMaintenance sweeps unprocessed maintenance records. The
// synthesized duration depends on the ticket kind: 180 min preventive,
// 240 min corrective, 120 min otherwise.
func (c *Correlator) ProcessPendingMaintenance(ctx context.Context) (*ProcessResult, error) {
	pending, err := c.integrations.ListPendingMaintenance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending maintenance records: %w", err)
	}
	catalog, err := c.catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event type catalog: %w", err)
	}

	result := &ProcessResult{}
	for _, rec := range pending {
		if rec.EventID == nil {
			driverID, ok := c.driverFor(ctx, rec.VehicleID)
			if !ok {
				c.logger.Warn("maintenance record skipped, vehicle has no driver",
					zap.Int64("record_id", rec.ID), zap.Int64("vehicle_id", rec.VehicleID))
				result.Skipped++
				continue
			}
			observation := fmt.Sprintf("Manutenção %s - %s - %s", rec.Kind, rec.Workshop, rec.Description)
			event, err := c.synthesize(ctx, catalog, classifier.CodeMaintenance,
				rec.VehicleID, driverID, rec.RecordedAt, maintenanceDuration(rec.Kind), rec.Address, observation)
			if err != nil {
				return result, err
			}
			rec.EventID = &event.ID
			result.Synthesized++
		} else {
			result.Linked++
		}

		rec.Processed = true
		if err := c.integrations.UpdateMaintenance(ctx, rec); err != nil {
			return result, fmt.Errorf("mark maintenance record %d processed: %w", rec.ID, err)
		}
	}
	return result, nil
}

func maintenanceDuration(kind string) int {
	switch kind {
	case "preventiva":
		return synthPreventiveDurationMin
	case "corretiva":
		return synthCorrectiveDurationMin
	default:
		return synthMaintenanceDurationMin
	}
}
