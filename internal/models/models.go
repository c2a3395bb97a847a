package models

import (
	"fmt"
	"time"
)

// Driver is the person journey events are attributed to.
type Driver struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	CPF       string     `json:"cpf" db:"cpf"`
	Badge     string     `json:"badge,omitempty" db:"badge"`
	Role      string     `json:"role,omitempty" db:"role"`
	HiredAt   *time.Time `json:"hired_at,omitempty" db:"hired_at"`
	Active    bool       `json:"active" db:"active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Vehicle is a tracked fleet vehicle. DriverID is the currently assigned
// driver; classification fails when it is unset.
type Vehicle struct {
	ID        int64     `json:"id" db:"id"`
	Plate     string    `json:"plate" db:"plate"`
	Label     string    `json:"label,omitempty" db:"label"`
	DriverID  *int64    `json:"driver_id,omitempty" db:"driver_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Position is one raw tracker sample. Immutable once stored, except for
// Consumed, which the trip engine sets exactly once after the sample has
// contributed to a finalized period.
type Position struct {
	ID         int64     `json:"id" db:"id"`
	VehicleID  int64     `json:"vehicle_id" db:"vehicle_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Latitude   *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude  *float64  `json:"longitude,omitempty" db:"longitude"`
	Speed      int       `json:"speed" db:"speed"` // km/h
	Address    string    `json:"address,omitempty" db:"address"`
	Landmark   string    `json:"landmark,omitempty" db:"landmark"`
	Consumed   bool      `json:"consumed" db:"consumed"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// EventType is one entry of the event-type catalog. Name is the key the
// rule logic resolves against; duration bounds are minutes and either may
// be absent (unbounded).
type EventType struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	ColorHex       string    `json:"color_hex,omitempty" db:"color_hex"`
	MinDurationMin *int      `json:"min_duration_min,omitempty" db:"min_duration_min"`
	MaxDurationMin *int      `json:"max_duration_min,omitempty" db:"max_duration_min"`
	Automatic      bool      `json:"automatic" db:"automatic"`
	Active         bool      `json:"active" db:"active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// JourneyEvent is one labeled span of a driver's journey, either derived
// from the position stream or created from an imported external record.
type JourneyEvent struct {
	ID             int64      `json:"id" db:"id"`
	VehicleID      int64      `json:"vehicle_id" db:"vehicle_id"`
	DriverID       int64      `json:"driver_id" db:"driver_id"`
	EventTypeID    int64      `json:"event_type_id" db:"event_type_id"`
	TypeName       string     `json:"type_name,omitempty" db:"type_name"` // denormalized catalog name
	StartTime      time.Time  `json:"start_time" db:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty" db:"end_time"`
	DurationMin    *int       `json:"duration_min,omitempty" db:"duration_min"`
	StartLatitude  *float64   `json:"start_latitude,omitempty" db:"start_latitude"`
	StartLongitude *float64   `json:"start_longitude,omitempty" db:"start_longitude"`
	EndLatitude    *float64   `json:"end_latitude,omitempty" db:"end_latitude"`
	EndLongitude   *float64   `json:"end_longitude,omitempty" db:"end_longitude"`
	StartAddress   string     `json:"start_address,omitempty" db:"start_address"`
	EndAddress     string     `json:"end_address,omitempty" db:"end_address"`
	Observations   string     `json:"observations,omitempty" db:"observations"`
	AutoClassified bool       `json:"auto_classified" db:"auto_classified"`
	Approved       bool       `json:"approved" db:"approved"`
	ApprovedBy     string     `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	SyncedExternal bool       `json:"synced_external" db:"synced_external"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// ComputeDuration recomputes DurationMin when both endpoints are known.
func (e *JourneyEvent) ComputeDuration() {
	if e.EndTime == nil {
		return
	}
	minutes := int(e.EndTime.Sub(e.StartTime).Minutes())
	e.DurationMin = &minutes
}

// Approve marks the event approved for external synchronization.
func (e *JourneyEvent) Approve(user string) {
	now := time.Now()
	e.Approved = true
	e.ApprovedBy = user
	e.ApprovedAt = &now
}

// AppendObservation adds a fragment to the observation text, creating it
// when absent.
func (e *JourneyEvent) AppendObservation(fragment string) {
	if e.Observations == "" {
		e.Observations = fragment
		return
	}
	e.Observations = fmt.Sprintf("%s | %s", e.Observations, fragment)
}
