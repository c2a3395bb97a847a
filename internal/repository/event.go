package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rcmelo/jornada/internal/models"
)

// EventRepository reads and writes journey events.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	e.id, e.vehicle_id, e.driver_id, e.event_type_id, t.name,
	e.start_time, e.end_time, e.duration_min,
	e.start_latitude, e.start_longitude, e.end_latitude, e.end_longitude,
	e.start_address, e.end_address, e.observations,
	e.auto_classified, e.approved, e.approved_by, e.approved_at,
	e.synced_external, e.created_at`

const eventFrom = ` FROM journey_events e JOIN event_types t ON t.id = e.event_type_id `

func scanEvent(row pgx.Row) (*models.JourneyEvent, error) {
	e := &models.JourneyEvent{}
	err := row.Scan(
		&e.ID, &e.VehicleID, &e.DriverID, &e.EventTypeID, &e.TypeName,
		&e.StartTime, &e.EndTime, &e.DurationMin,
		&e.StartLatitude, &e.StartLongitude, &e.EndLatitude, &e.EndLongitude,
		&e.StartAddress, &e.EndAddress, &e.Observations,
		&e.AutoClassified, &e.Approved, &e.ApprovedBy, &e.ApprovedAt,
		&e.SyncedExternal, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*models.JourneyEvent, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.JourneyEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const insertEventSQL = `
	INSERT INTO journey_events (
		vehicle_id, driver_id, event_type_id, start_time, end_time, duration_min,
		start_latitude, start_longitude, end_latitude, end_longitude,
		start_address, end_address, observations, auto_classified
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING id, created_at
`

// Create inserts one event and fills its id.
func (r *EventRepository) Create(ctx context.Context, e *models.JourneyEvent) error {
	err := r.db.Pool.QueryRow(ctx, insertEventSQL,
		e.VehicleID, e.DriverID, e.EventTypeID, e.StartTime, e.EndTime, e.DurationMin,
		e.StartLatitude, e.StartLongitude, e.EndLatitude, e.EndLongitude,
		e.StartAddress, e.EndAddress, e.Observations, e.AutoClassified,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// SaveClassification persists one classification batch atomically:
// every event inserted and every input position marked consumed, or
// nothing at all. Positions must never read consumed while their events
// are missing.
func (r *EventRepository) SaveClassification(ctx context.Context, events []*models.JourneyEvent, positions []*models.Position) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin classification tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		err := tx.QueryRow(ctx, insertEventSQL,
			e.VehicleID, e.DriverID, e.EventTypeID, e.StartTime, e.EndTime, e.DurationMin,
			e.StartLatitude, e.StartLongitude, e.EndLatitude, e.EndLongitude,
			e.StartAddress, e.EndAddress, e.Observations, e.AutoClassified,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert classified event: %w", err)
		}
	}

	ids := make([]int64, len(positions))
	for i, p := range positions {
		ids[i] = p.ID
	}
	if _, err := tx.Exec(ctx, `UPDATE positions SET consumed = true WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("mark positions consumed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit classification tx: %w", err)
	}

	for _, p := range positions {
		p.Consumed = true
	}
	return nil
}

// Update rewrites the mutable fields of an event (type, endpoints,
// annotations, approval, sync flag).
func (r *EventRepository) Update(ctx context.Context, e *models.JourneyEvent) error {
	query := `
		UPDATE journey_events SET
			event_type_id = $2, start_time = $3, end_time = $4, duration_min = $5,
			start_latitude = $6, start_longitude = $7, end_latitude = $8, end_longitude = $9,
			start_address = $10, end_address = $11, observations = $12,
			approved = $13, approved_by = $14, approved_at = $15,
			synced_external = $16
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		e.ID, e.EventTypeID, e.StartTime, e.EndTime, e.DurationMin,
		e.StartLatitude, e.StartLongitude, e.EndLatitude, e.EndLongitude,
		e.StartAddress, e.EndAddress, e.Observations,
		e.Approved, e.ApprovedBy, e.ApprovedAt, e.SyncedExternal,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %d: %w", e.ID, models.ErrNotFound)
	}
	return nil
}

// Delete removes one event. The synced-external guard lives in the
// engine; callers go through it.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM journey_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetByID fetches one event, mapping an absent row to ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.JourneyEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `WHERE e.id = $1`
	e, err := scanEvent(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// FindByVehicleAndType returns a vehicle's events of one type whose
// start falls inside [from, to], earliest start first. The order makes
// first-found correlation deterministic.
func (r *EventRepository) FindByVehicleAndType(ctx context.Context, vehicleID int64, typeName string, from, to time.Time) ([]*models.JourneyEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `
		WHERE e.vehicle_id = $1 AND t.name = $2
		  AND e.start_time >= $3 AND e.start_time <= $4
		ORDER BY e.start_time`
	events, err := r.queryEvents(ctx, query, vehicleID, typeName, from, to)
	if err != nil {
		return nil, fmt.Errorf("find events by vehicle and type: %w", err)
	}
	return events, nil
}

// FindByVehicleDriverAndType is the driver-scoped variant used for
// checklist correlation.
func (r *EventRepository) FindByVehicleDriverAndType(ctx context.Context, vehicleID, driverID int64, typeName string, from, to time.Time) ([]*models.JourneyEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `
		WHERE e.vehicle_id = $1 AND e.driver_id = $2 AND t.name = $3
		  AND e.start_time >= $4 AND e.start_time <= $5
		ORDER BY e.start_time`
	events, err := r.queryEvents(ctx, query, vehicleID, driverID, typeName, from, to)
	if err != nil {
		return nil, fmt.Errorf("find events by vehicle, driver and type: %w", err)
	}
	return events, nil
}

// ListByVehicle returns a vehicle's events in a time window.
func (r *EventRepository) ListByVehicle(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*models.JourneyEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `
		WHERE e.vehicle_id = $1
		  AND ($2::timestamptz IS NULL OR e.start_time >= $2)
		  AND ($3::timestamptz IS NULL OR e.start_time <= $3)
		ORDER BY e.start_time`
	events, err := r.queryEvents(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events by vehicle: %w", err)
	}
	return events, nil
}

// ListApprovedByDriver returns a driver's approved events since the
// given instant.
func (r *EventRepository) ListApprovedByDriver(ctx context.Context, driverID int64, since time.Time) ([]*models.JourneyEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `
		WHERE e.driver_id = $1 AND e.approved AND e.start_time >= $2
		ORDER BY e.start_time`
	events, err := r.queryEvents(ctx, query, driverID, since)
	if err != nil {
		return nil, fmt.Errorf("list approved events by driver: %w", err)
	}
	return events, nil
}

// EventStatistics summarizes the review state of the event base.
type EventStatistics struct {
	Total        int            `json:"total"`
	Approved     int            `json:"approved"`
	Pending      int            `json:"pending"`
	Automatic    int            `json:"automatic"`
	Manual       int            `json:"manual"`
	Synced       int            `json:"synced"`
	ApprovedPct  float64        `json:"approved_pct"`
	AutomaticPct float64        `json:"automatic_pct"`
	ByType       map[string]int `json:"by_type"`
}

// Stats aggregates event counts, optionally filtered by vehicle and a
// start-time window. Percentages are rounded to two decimals and zero
// when there are no events.
func (r *EventRepository) Stats(ctx context.Context, vehicleID *int64, from, to *time.Time) (*EventStatistics, error) {
	stats := &EventStatistics{ByType: make(map[string]int)}

	const filter = `
		WHERE ($1::bigint IS NULL OR e.vehicle_id = $1)
		  AND ($2::timestamptz IS NULL OR e.start_time >= $2)
		  AND ($3::timestamptz IS NULL OR e.start_time <= $3)`

	totals := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE e.approved),
		       COUNT(*) FILTER (WHERE e.auto_classified),
		       COUNT(*) FILTER (WHERE e.synced_external)
		FROM journey_events e` + filter
	err := r.db.Pool.QueryRow(ctx, totals, vehicleID, from, to).
		Scan(&stats.Total, &stats.Approved, &stats.Automatic, &stats.Synced)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	stats.Pending = stats.Total - stats.Approved
	stats.Manual = stats.Total - stats.Automatic
	if stats.Total > 0 {
		stats.ApprovedPct = pct(stats.Approved, stats.Total)
		stats.AutomaticPct = pct(stats.Automatic, stats.Total)
	}

	byType := `
		SELECT t.name, COUNT(*)` + eventFrom + filter + `
		GROUP BY t.name`
	rows, err := r.db.Pool.Query(ctx, byType, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count events by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan event type count: %w", err)
		}
		stats.ByType[name] = count
	}
	return stats, rows.Err()
}

func pct(part, total int) float64 {
	return math.Round(float64(part)/float64(total)*10000) / 100
}

// ListUnapprovedAuto returns a vehicle's auto-classified events still
// waiting for review.
func (r *EventRepository) ListUnapprovedAuto(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*models.JourneyEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `
		WHERE e.vehicle_id = $1 AND e.auto_classified AND NOT e.approved
		  AND ($2::timestamptz IS NULL OR e.start_time >= $2)
		  AND ($3::timestamptz IS NULL OR e.start_time <= $3)
		ORDER BY e.start_time`
	events, err := r.queryEvents(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list unapproved auto events: %w", err)
	}
	return events, nil
}
