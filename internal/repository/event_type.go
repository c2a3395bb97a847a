package repository

import (
	"context"
	"fmt"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/models"
)

// EventTypeRepository reads the event-type catalog.
type EventTypeRepository struct {
	db *DB
}

func NewEventTypeRepository(db *DB) *EventTypeRepository {
	return &EventTypeRepository{db: db}
}

const eventTypeColumns = `id, name, description, color_hex, min_duration_min, max_duration_min, automatic, active, created_at`

// ActiveTypes loads the active catalog entries keyed by name, the shape
// the classifier consumes.
func (r *EventTypeRepository) ActiveTypes(ctx context.Context) (classifier.Catalog, error) {
	query := `SELECT ` + eventTypeColumns + ` FROM event_types WHERE active`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active event types: %w", err)
	}
	defer rows.Close()

	catalog := make(classifier.Catalog)
	for rows.Next() {
		et := &models.EventType{}
		err := rows.Scan(
			&et.ID,
			&et.Name,
			&et.Description,
			&et.ColorHex,
			&et.MinDurationMin,
			&et.MaxDurationMin,
			&et.Automatic,
			&et.Active,
			&et.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		catalog[et.Name] = et
	}
	return catalog, rows.Err()
}

// List returns all catalog entries ordered by name, including inactive
// ones, for the catalog endpoint.
func (r *EventTypeRepository) List(ctx context.Context) ([]*models.EventType, error) {
	query := `SELECT ` + eventTypeColumns + ` FROM event_types ORDER BY name`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	defer rows.Close()

	var types []*models.EventType
	for rows.Next() {
		et := &models.EventType{}
		err := rows.Scan(
			&et.ID,
			&et.Name,
			&et.Description,
			&et.ColorHex,
			&et.MinDurationMin,
			&et.MaxDurationMin,
			&et.Automatic,
			&et.Active,
			&et.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event type: %w", err)
		}
		types = append(types, et)
	}
	return types, rows.Err()
}
