package models

import "time"

// Externally reported telemetry records. Each is created by an import and
// mutated exactly once afterwards: correlation or synthesis sets EventID
// and Processed; re-running on a linked record is a no-op.

// FuelRecord is an imported fuel purchase.
type FuelRecord struct {
	ID         int64     `json:"id" db:"id"`
	VehicleID  int64     `json:"vehicle_id" db:"vehicle_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Station    string    `json:"station,omitempty" db:"station"`
	Address    string    `json:"address,omitempty" db:"address"`
	Liters     *float64  `json:"liters,omitempty" db:"liters"`
	Cost       *float64  `json:"cost,omitempty" db:"cost"`
	EventID    *int64    `json:"event_id,omitempty" db:"event_id"`
	Processed  bool      `json:"processed" db:"processed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ChecklistRecord is an imported safety checklist submission.
type ChecklistRecord struct {
	ID         int64     `json:"id" db:"id"`
	VehicleID  int64     `json:"vehicle_id" db:"vehicle_id"`
	DriverID   int64     `json:"driver_id" db:"driver_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Kind       string    `json:"kind,omitempty" db:"kind"`     // saida, chegada, manutencao
	Status     string    `json:"status,omitempty" db:"status"` // aprovado, reprovado, pendente
	Notes      string    `json:"notes,omitempty" db:"notes"`
	EventID    *int64    `json:"event_id,omitempty" db:"event_id"`
	Processed  bool      `json:"processed" db:"processed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MaintenanceRecord is an imported maintenance ticket.
type MaintenanceRecord struct {
	ID          int64     `json:"id" db:"id"`
	VehicleID   int64     `json:"vehicle_id" db:"vehicle_id"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
	Kind        string    `json:"kind,omitempty" db:"kind"` // preventiva, corretiva, revisao
	Description string    `json:"description,omitempty" db:"description"`
	Workshop    string    `json:"workshop,omitempty" db:"workshop"`
	Address     string    `json:"address,omitempty" db:"address"`
	EventID     *int64    `json:"event_id,omitempty" db:"event_id"`
	Processed   bool      `json:"processed" db:"processed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
