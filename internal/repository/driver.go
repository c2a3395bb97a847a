package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rcmelo/jornada/internal/models"
)

// DriverRepository reads and writes drivers.
type DriverRepository struct {
	db *DB
}

func NewDriverRepository(db *DB) *DriverRepository {
	return &DriverRepository{db: db}
}

const driverColumns = `id, name, cpf, badge, role, hired_at, active, created_at`

func scanDriver(row pgx.Row) (*models.Driver, error) {
	d := &models.Driver{}
	err := row.Scan(&d.ID, &d.Name, &d.CPF, &d.Badge, &d.Role, &d.HiredAt, &d.Active, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetByID fetches one driver, mapping an absent row to ErrNotFound.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	d, err := scanDriver(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("driver %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return d, nil
}

// GetByCPF resolves a driver by CPF, used by checklist imports.
func (r *DriverRepository) GetByCPF(ctx context.Context, cpf string) (*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE cpf = $1`
	d, err := scanDriver(r.db.Pool.QueryRow(ctx, query, cpf))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("driver cpf %q: %w", cpf, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get driver by cpf: %w", err)
	}
	return d, nil
}

// List returns active drivers ordered by name.
func (r *DriverRepository) List(ctx context.Context) ([]*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE active ORDER BY name`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*models.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

// Create inserts a driver and fills its id.
func (r *DriverRepository) Create(ctx context.Context, d *models.Driver) error {
	query := `
		INSERT INTO drivers (name, cpf, badge, role, hired_at, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, d.Name, d.CPF, d.Badge, d.Role, d.HiredAt, d.Active).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}
