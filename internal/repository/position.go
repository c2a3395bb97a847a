package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rcmelo/jornada/internal/models"
)

// PositionRepository reads and writes raw tracker samples.
type PositionRepository struct {
	db *DB
}

func NewPositionRepository(db *DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts one sample and fills its id.
func (r *PositionRepository) Create(ctx context.Context, pos *models.Position) error {
	query := `
		INSERT INTO positions (vehicle_id, recorded_at, latitude, longitude, speed, address, landmark)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		pos.VehicleID,
		pos.RecordedAt,
		pos.Latitude,
		pos.Longitude,
		pos.Speed,
		pos.Address,
		pos.Landmark,
	).Scan(&pos.ID, &pos.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// ListPending returns a vehicle's unconsumed samples ordered by
// timestamp, optionally bounded by a time window. Arrival order (id)
// breaks timestamp ties so segmentation sees a stable sequence.
func (r *PositionRepository) ListPending(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*models.Position, error) {
	query := `
		SELECT id, vehicle_id, recorded_at, latitude, longitude, speed, address, landmark, consumed, created_at
		FROM positions
		WHERE vehicle_id = $1 AND NOT consumed
		  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		  AND ($3::timestamptz IS NULL OR recorded_at <= $3)
		ORDER BY recorded_at, id
	`
	rows, err := r.db.Pool.Query(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list pending positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos := &models.Position{}
		err := rows.Scan(
			&pos.ID,
			&pos.VehicleID,
			&pos.RecordedAt,
			&pos.Latitude,
			&pos.Longitude,
			&pos.Speed,
			&pos.Address,
			&pos.Landmark,
			&pos.Consumed,
			&pos.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// ListByVehicle returns a vehicle's samples in a time window, newest
// last.
func (r *PositionRepository) ListByVehicle(ctx context.Context, vehicleID int64, from, to *time.Time, limit int) ([]*models.Position, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
		SELECT id, vehicle_id, recorded_at, latitude, longitude, speed, address, landmark, consumed, created_at
		FROM positions
		WHERE vehicle_id = $1
		  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		  AND ($3::timestamptz IS NULL OR recorded_at <= $3)
		ORDER BY recorded_at, id
		LIMIT $4
	`
	rows, err := r.db.Pool.Query(ctx, query, vehicleID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		pos := &models.Position{}
		err := rows.Scan(
			&pos.ID,
			&pos.VehicleID,
			&pos.RecordedAt,
			&pos.Latitude,
			&pos.Longitude,
			&pos.Speed,
			&pos.Address,
			&pos.Landmark,
			&pos.Consumed,
			&pos.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}
