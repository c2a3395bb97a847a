package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx connection pool shared by all repositories.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens the pool and verifies the connection.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close shuts the pool down.
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate applies the schema migrations in order. Statements are
// idempotent, so rerunning on startup is safe.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateDrivers,
		migrationCreateVehicles,
		migrationCreatePositions,
		migrationCreateEventTypes,
		migrationCreateJourneyEvents,
		migrationCreateFuelRecords,
		migrationCreateChecklistRecords,
		migrationCreateMaintenanceRecords,
		migrationSeedEventTypes,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

const migrationCreateDrivers = `
CREATE TABLE IF NOT EXISTS drivers (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    cpf VARCHAR(14) NOT NULL UNIQUE,
    badge VARCHAR(50),
    role VARCHAR(50),
    hired_at TIMESTAMP WITH TIME ZONE,
    active BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_drivers_cpf ON drivers(cpf);
`

const migrationCreateVehicles = `
CREATE TABLE IF NOT EXISTS vehicles (
    id BIGSERIAL PRIMARY KEY,
    plate VARCHAR(10) NOT NULL UNIQUE,
    label VARCHAR(255),
    driver_id BIGINT REFERENCES drivers(id),
    active BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_vehicles_plate ON vehicles(plate);
`

const migrationCreatePositions = `
CREATE TABLE IF NOT EXISTS positions (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    speed INT NOT NULL DEFAULT 0,
    address TEXT,
    landmark TEXT,
    consumed BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_positions_vehicle_id ON positions(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_positions_recorded_at ON positions(recorded_at);
CREATE INDEX IF NOT EXISTS idx_positions_consumed ON positions(vehicle_id, consumed);
`

const migrationCreateEventTypes = `
CREATE TABLE IF NOT EXISTS event_types (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT,
    color_hex VARCHAR(7),
    min_duration_min INT,
    max_duration_min INT,
    automatic BOOLEAN NOT NULL DEFAULT false,
    active BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`

const migrationCreateJourneyEvents = `
CREATE TABLE IF NOT EXISTS journey_events (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    driver_id BIGINT NOT NULL REFERENCES drivers(id),
    event_type_id BIGINT NOT NULL REFERENCES event_types(id),
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE,
    duration_min INT,
    start_latitude DOUBLE PRECISION,
    start_longitude DOUBLE PRECISION,
    end_latitude DOUBLE PRECISION,
    end_longitude DOUBLE PRECISION,
    start_address TEXT,
    end_address TEXT,
    observations TEXT,
    auto_classified BOOLEAN NOT NULL DEFAULT false,
    approved BOOLEAN NOT NULL DEFAULT false,
    approved_by VARCHAR(255),
    approved_at TIMESTAMP WITH TIME ZONE,
    synced_external BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_journey_events_vehicle_id ON journey_events(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_journey_events_driver_id ON journey_events(driver_id);
CREATE INDEX IF NOT EXISTS idx_journey_events_start_time ON journey_events(start_time);
`

const migrationCreateFuelRecords = `
CREATE TABLE IF NOT EXISTS fuel_records (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    station VARCHAR(255),
    address TEXT,
    liters DOUBLE PRECISION,
    cost DOUBLE PRECISION,
    event_id BIGINT REFERENCES journey_events(id),
    processed BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_fuel_records_vehicle_id ON fuel_records(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_fuel_records_processed ON fuel_records(processed);
`

const migrationCreateChecklistRecords = `
CREATE TABLE IF NOT EXISTS checklist_records (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    driver_id BIGINT NOT NULL REFERENCES drivers(id),
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    kind VARCHAR(20),
    status VARCHAR(20),
    notes TEXT,
    event_id BIGINT REFERENCES journey_events(id),
    processed BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_checklist_records_vehicle_id ON checklist_records(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_checklist_records_processed ON checklist_records(processed);
`

const migrationCreateMaintenanceRecords = `
CREATE TABLE IF NOT EXISTS maintenance_records (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    kind VARCHAR(20),
    description TEXT,
    workshop VARCHAR(255),
    address TEXT,
    event_id BIGINT REFERENCES journey_events(id),
    processed BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_maintenance_records_vehicle_id ON maintenance_records(vehicle_id);
CREATE INDEX IF NOT EXISTS idx_maintenance_records_processed ON maintenance_records(processed);
`

// Baseline event-type catalog. Names are the keys the classifier
// resolves against.
const migrationSeedEventTypes = `
INSERT INTO event_types (name, description, color_hex, min_duration_min, max_duration_min, automatic) VALUES
    ('Interjornada', 'Descanso entre jornadas', '#2E86AB', 660, NULL, true),
    ('Almoço', 'Refeição principal', '#A23B72', 30, 120, true),
    ('Café/Lanche', 'Parada curta para lanche', '#F18F01', 15, 45, true),
    ('Carga', 'Carregamento do veículo', '#C73E1D', 30, 240, false),
    ('Descarga', 'Descarregamento do veículo', '#C73E1D', 30, 240, false),
    ('Abastecimento', 'Abastecimento de combustível', '#3E92CC', 10, 30, true),
    ('Check List', 'Inspeção do veículo', '#52B788', 15, 45, true),
    ('Manutenção', 'Manutenção do veículo', '#8E44AD', 60, 480, true),
    ('Condução', 'Veículo em movimento', '#27AE60', 1, NULL, true),
    ('Outros', 'Parada não categorizada', '#95A5A6', 1, NULL, false)
ON CONFLICT (name) DO NOTHING;
`
