package repository

import (
	"context"
	"fmt"

	"github.com/rcmelo/jornada/internal/models"
)

// IntegrationRepository stores imported external telemetry records:
// fuel purchases, checklists and maintenance tickets.
type IntegrationRepository struct {
	db *DB
}

func NewIntegrationRepository(db *DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// KindStats summarizes one record kind for the statistics endpoint.
type KindStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Pending   int `json:"pending"`
}

// Stats aggregates all three kinds.
type Stats struct {
	Fuel        KindStats `json:"fuel"`
	Checklist   KindStats `json:"checklist"`
	Maintenance KindStats `json:"maintenance"`
}

// --- fuel ---

func (r *IntegrationRepository) CreateFuel(ctx context.Context, rec *models.FuelRecord) error {
	query := `
		INSERT INTO fuel_records (vehicle_id, recorded_at, station, address, liters, cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		rec.VehicleID, rec.RecordedAt, rec.Station, rec.Address, rec.Liters, rec.Cost,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fuel record: %w", err)
	}
	return nil
}

// FuelExists reports whether an identical purchase was already
// imported, keyed by vehicle and timestamp.
func (r *IntegrationRepository) FuelExists(ctx context.Context, vehicleID int64, rec *models.FuelRecord) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM fuel_records WHERE vehicle_id = $1 AND recorded_at = $2)`
	if err := r.db.Pool.QueryRow(ctx, query, vehicleID, rec.RecordedAt).Scan(&exists); err != nil {
		return false, fmt.Errorf("check fuel duplicate: %w", err)
	}
	return exists, nil
}

func (r *IntegrationRepository) UpdateFuel(ctx context.Context, rec *models.FuelRecord) error {
	query := `UPDATE fuel_records SET event_id = $2, processed = $3 WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, query, rec.ID, rec.EventID, rec.Processed); err != nil {
		return fmt.Errorf("update fuel record: %w", err)
	}
	return nil
}

func (r *IntegrationRepository) ListPendingFuel(ctx context.Context) ([]*models.FuelRecord, error) {
	query := `
		SELECT id, vehicle_id, recorded_at, station, address, liters, cost, event_id, processed, created_at
		FROM fuel_records WHERE NOT processed ORDER BY recorded_at
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending fuel records: %w", err)
	}
	defer rows.Close()

	var records []*models.FuelRecord
	for rows.Next() {
		rec := &models.FuelRecord{}
		err := rows.Scan(
			&rec.ID, &rec.VehicleID, &rec.RecordedAt, &rec.Station, &rec.Address,
			&rec.Liters, &rec.Cost, &rec.EventID, &rec.Processed, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fuel record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- checklist ---

func (r *IntegrationRepository) CreateChecklist(ctx context.Context, rec *models.ChecklistRecord) error {
	query := `
		INSERT INTO checklist_records (vehicle_id, driver_id, recorded_at, kind, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		rec.VehicleID, rec.DriverID, rec.RecordedAt, rec.Kind, rec.Status, rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checklist record: %w", err)
	}
	return nil
}

func (r *IntegrationRepository) ChecklistExists(ctx context.Context, rec *models.ChecklistRecord) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM checklist_records
			WHERE vehicle_id = $1 AND driver_id = $2 AND recorded_at = $3 AND kind = $4
		)
	`
	err := r.db.Pool.QueryRow(ctx, query, rec.VehicleID, rec.DriverID, rec.RecordedAt, rec.Kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check checklist duplicate: %w", err)
	}
	return exists, nil
}

func (r *IntegrationRepository) UpdateChecklist(ctx context.Context, rec *models.ChecklistRecord) error {
	query := `UPDATE checklist_records SET event_id = $2, processed = $3 WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, query, rec.ID, rec.EventID, rec.Processed); err != nil {
		return fmt.Errorf("update checklist record: %w", err)
	}
	return nil
}

func (r *IntegrationRepository) ListPendingChecklist(ctx context.Context) ([]*models.ChecklistRecord, error) {
	query := `
		SELECT id, vehicle_id, driver_id, recorded_at, kind, status, notes, event_id, processed, created_at
		FROM checklist_records WHERE NOT processed ORDER BY recorded_at
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending checklist records: %w", err)
	}
	defer rows.Close()

	var records []*models.ChecklistRecord
	for rows.Next() {
		rec := &models.ChecklistRecord{}
		err := rows.Scan(
			&rec.ID, &rec.VehicleID, &rec.DriverID, &rec.RecordedAt, &rec.Kind,
			&rec.Status, &rec.Notes, &rec.EventID, &rec.Processed, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan checklist record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- maintenance ---

func (r *IntegrationRepository) CreateMaintenance(ctx context.Context, rec *models.MaintenanceRecord) error {
	query := `
		INSERT INTO maintenance_records (vehicle_id, recorded_at, kind, description, workshop, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		rec.VehicleID, rec.RecordedAt, rec.Kind, rec.Description, rec.Workshop, rec.Address,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert maintenance record: %w", err)
	}
	return nil
}

func (r *IntegrationRepository) MaintenanceExists(ctx context.Context, rec *models.MaintenanceRecord) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM maintenance_records
			WHERE vehicle_id = $1 AND recorded_at = $2 AND kind = $3
		)
	`
	err := r.db.Pool.QueryRow(ctx, query, rec.VehicleID, rec.RecordedAt, rec.Kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check maintenance duplicate: %w", err)
	}
	return exists, nil
}

func (r *IntegrationRepository) UpdateMaintenance(ctx context.Context, rec *models.MaintenanceRecord) error {
	query := `UPDATE maintenance_records SET event_id = $2, processed = $3 WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, query, rec.ID, rec.EventID, rec.Processed); err != nil {
		return fmt.Errorf("update maintenance record: %w", err)
	}
	return nil
}

func (r *IntegrationRepository) ListPendingMaintenance(ctx context.Context) ([]*models.MaintenanceRecord, error) {
	query := `
		SELECT id, vehicle_id, recorded_at, kind, description, workshop, address, event_id, processed, created_at
		FROM maintenance_records WHERE NOT processed ORDER BY recorded_at
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending maintenance records: %w", err)
	}
	defer rows.Close()

	var records []*models.MaintenanceRecord
	for rows.Next() {
		rec := &models.MaintenanceRecord{}
		err := rows.Scan(
			&rec.ID, &rec.VehicleID, &rec.RecordedAt, &rec.Kind, &rec.Description,
			&rec.Workshop, &rec.Address, &rec.EventID, &rec.Processed, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- statistics ---

// GetStats counts total, processed and pending records per kind.
func (r *IntegrationRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	kinds := []struct {
		table string
		out   *KindStats
	}{
		{"fuel_records", &stats.Fuel},
		{"checklist_records", &stats.Checklist},
		{"maintenance_records", &stats.Maintenance},
	}
	for _, k := range kinds {
		query := fmt.Sprintf(`
			SELECT COUNT(*),
			       COUNT(*) FILTER (WHERE processed),
			       COUNT(*) FILTER (WHERE NOT processed)
			FROM %s`, k.table)
		if err := r.db.Pool.QueryRow(ctx, query).Scan(&k.out.Total, &k.out.Processed, &k.out.Pending); err != nil {
			return nil, fmt.Errorf("count %s: %w", k.table, err)
		}
	}
	return stats, nil
}
