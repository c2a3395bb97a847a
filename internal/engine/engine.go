package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/models"
	"github.com/rcmelo/jornada/internal/segment"
)

// Storage collaborators. The repository package provides the pgx-backed
// implementations; tests substitute in-memory fakes.

// PositionStore reads and consumes raw tracker samples.
type PositionStore interface {
	// ListPending returns the vehicle's unconsumed samples ordered by
	// timestamp, optionally bounded by a time window.
	ListPending(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*models.Position, error)
}

// VehicleStore resolves vehicles.
type VehicleStore interface {
	GetByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

// CatalogStore loads the active event-type catalog.
type CatalogStore interface {
	ActiveTypes(ctx context.Context) (classifier.Catalog, error)
}

// EventStore persists and queries journey events.
type EventStore interface {
	// SaveClassification writes a classification batch atomically: all
	// events inserted and all positions marked consumed, or neither.
	SaveClassification(ctx context.Context, events []*models.JourneyEvent, positions []*models.Position) error
	Create(ctx context.Context, event *models.JourneyEvent) error
	Update(ctx context.Context, event *models.JourneyEvent) error
	GetByID(ctx context.Context, id int64) (*models.JourneyEvent, error)
	Delete(ctx context.Context, id int64) error
	// Finders return events ordered by start time ascending.
	FindByVehicleAndType(ctx context.Context, vehicleID int64, typeName string, from, to time.Time) ([]*models.JourneyEvent, error)
	FindByVehicleDriverAndType(ctx context.Context, vehicleID, driverID int64, typeName string, from, to time.Time) ([]*models.JourneyEvent, error)
	ListApprovedByDriver(ctx context.Context, driverID int64, since time.Time) ([]*models.JourneyEvent, error)
	ListUnapprovedAuto(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*models.JourneyEvent, error)
}

// IntegrationStore mutates and sweeps imported external records.
type IntegrationStore interface {
	UpdateFuel(ctx context.Context, rec *models.FuelRecord) error
	UpdateChecklist(ctx context.Context, rec *models.ChecklistRecord) error
	UpdateMaintenance(ctx context.Context, rec *models.MaintenanceRecord) error
	ListPendingFuel(ctx context.Context) ([]*models.FuelRecord, error)
	ListPendingChecklist(ctx context.Context) ([]*models.ChecklistRecord, error)
	ListPendingMaintenance(ctx context.Context) ([]*models.MaintenanceRecord, error)
}

// TripEngine runs the segmentation and classification pipeline over one
// vehicle's pending positions. One invocation processes one vehicle to
// completion; callers must serialize concurrent runs for the same
// vehicle.
type TripEngine struct {
	positions      PositionStore
	vehicles       VehicleStore
	catalog        CatalogStore
	events         EventStore
	segmenter      *segment.Segmenter
	minDurationMin int
	logger         *zap.Logger
}

// NewTripEngine wires the engine. speedThresholdKmh and minDurationMin
// fall back to package defaults when non-positive.
func NewTripEngine(
	positions PositionStore,
	vehicles VehicleStore,
	catalog CatalogStore,
	events EventStore,
	speedThresholdKmh int,
	minDurationMin int,
	logger *zap.Logger,
) *TripEngine {
	return &TripEngine{
		positions:      positions,
		vehicles:       vehicles,
		catalog:        catalog,
		events:         events,
		segmenter:      segment.New(speedThresholdKmh),
		minDurationMin: minDurationMin,
		logger:         logger,
	}
}

// ClassifyVehicle loads the vehicle's unconsumed positions (optionally
// window-bounded), segments them into periods, classifies each period and
// persists the resulting events while marking every input position
// consumed, all in one transaction. No pending positions is an empty
// result, not an error. A vehicle without an assigned driver fails with
// ErrConfig.
func (e *TripEngine) ClassifyVehicle(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*models.JourneyEvent, error) {
	positions, err := e.positions.ListPending(ctx, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load pending positions for vehicle %d: %w", vehicleID, err)
	}
	if len(positions) == 0 {
		e.logger.Debug("no pending positions", zap.Int64("vehicle_id", vehicleID))
		return []*models.JourneyEvent{}, nil
	}

	vehicle, err := e.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("load vehicle %d: %w", vehicleID, err)
	}
	if vehicle.DriverID == nil {
		return nil, configErrorf("vehicle %d has no assigned driver", vehicleID)
	}

	catalog, err := e.catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event type catalog: %w", err)
	}
	cls := classifier.NewWithGate(catalog, e.minDurationMin)

	periods, err := e.segmenter.Split(positions)
	if err != nil {
		return nil, fmt.Errorf("segment positions for vehicle %d: %w", vehicleID, err)
	}

	events := make([]*models.JourneyEvent, 0, len(periods))
	for _, p := range periods {
		event, err := cls.Classify(p, vehicleID, *vehicle.DriverID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		if event == nil {
			continue
		}
		events = append(events, event)
	}

	if err := e.events.SaveClassification(ctx, events, positions); err != nil {
		return nil, fmt.Errorf("persist classification for vehicle %d: %w", vehicleID, err)
	}

	e.logger.Info("vehicle classified",
		zap.Int64("vehicle_id", vehicleID),
		zap.Int("positions", len(positions)),
		zap.Int("periods", len(periods)),
		zap.Int("events", len(events)))

	return events, nil
}
