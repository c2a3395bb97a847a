package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/models"
)

// ErrSyncedEvent guards events already pushed to the external journey
// system: they must stay on record and cannot be deleted.
var ErrSyncedEvent = errors.New("event already synced externally")

// EventService carries the manual half of the event lifecycle: operator
// creation, edits, approval reversal and guarded deletion. The automatic
// half lives in TripEngine and Correlator.
type EventService struct {
	events  EventStore
	catalog CatalogStore
	logger  *zap.Logger
}

// NewEventService wires the service.
func NewEventService(events EventStore, catalog CatalogStore, logger *zap.Logger) *EventService {
	return &EventService{
		events:  events,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateManual persists an operator-created event. The event type must
// exist in the active catalog; duration is derived when the end is
// known. Manual events start unapproved.
func (s *EventService) CreateManual(ctx context.Context, event *models.JourneyEvent) error {
	def, err := s.typeByID(ctx, event.EventTypeID)
	if err != nil {
		return err
	}
	event.TypeName = def.Name
	event.AutoClassified = false
	event.ComputeDuration()

	if err := s.events.Create(ctx, event); err != nil {
		return fmt.Errorf("create manual event: %w", err)
	}

	s.logger.Info("manual event created",
		zap.Int64("event_id", event.ID),
		zap.Int64("vehicle_id", event.VehicleID),
		zap.String("type", def.Name))
	return nil
}

// Revise rewrites an edited event. Duration is recomputed from the new
// endpoints; an edited manual event loses any prior approval and goes
// back to review.
func (s *EventService) Revise(ctx context.Context, event *models.JourneyEvent) error {
	if _, err := s.typeByID(ctx, event.EventTypeID); err != nil {
		return err
	}
	event.ComputeDuration()
	if !event.AutoClassified {
		event.Approved = false
		event.ApprovedBy = ""
		event.ApprovedAt = nil
	}

	if err := s.events.Update(ctx, event); err != nil {
		return fmt.Errorf("update event %d: %w", event.ID, err)
	}
	return nil
}

// Reject withdraws approval so the event goes back to review. A copy
// already synced externally is invalidated as well.
func (s *EventService) Reject(ctx context.Context, id int64) (*models.JourneyEvent, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Approved = false
	event.ApprovedBy = ""
	event.ApprovedAt = nil
	event.SyncedExternal = false

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("reject event %d: %w", id, err)
	}

	s.logger.Info("event rejected", zap.Int64("event_id", id))
	return event, nil
}

// Delete removes an event, refusing when it was already synced
// externally.
func (s *EventService) Delete(ctx context.Context, id int64) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event.SyncedExternal {
		return fmt.Errorf("event %d: %w", id, ErrSyncedEvent)
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}

	s.logger.Info("event deleted", zap.Int64("event_id", id))
	return nil
}

func (s *EventService) typeByID(ctx context.Context, id int64) (*models.EventType, error) {
	catalog, err := s.catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event type catalog: %w", err)
	}
	for _, def := range catalog {
		if def.ID == id {
			return def, nil
		}
	}
	return nil, fmt.Errorf("event type %d: %w", id, models.ErrNotFound)
}
