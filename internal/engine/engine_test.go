package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/models"
)

// In-memory store fakes shared by the engine, correlator and pattern
// analyzer tests.

type fakePositions struct {
	samples []*models.Position
}

func (f *fakePositions) ListPending(_ context.Context, vehicleID int64, from, to *time.Time) ([]*models.Position, error) {
	var out []*models.Position
	for _, p := range f.samples {
		if p.Consumed || p.VehicleID != vehicleID {
			continue
		}
		if from != nil && p.RecordedAt.Before(*from) {
			continue
		}
		if to != nil && p.RecordedAt.After(*to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

type fakeVehicles struct {
	vehicles map[int64]*models.Vehicle
}

func (f *fakeVehicles) GetByID(_ context.Context, id int64) (*models.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %d: %w", id, models.ErrNotFound)
	}
	return v, nil
}

type fakeCatalog struct {
	catalog classifier.Catalog
}

func (f *fakeCatalog) ActiveTypes(_ context.Context) (classifier.Catalog, error) {
	return f.catalog, nil
}

type fakeEvents struct {
	events  []*models.JourneyEvent
	nextID  int64
	saveErr error
	updates int
}

func (f *fakeEvents) SaveClassification(_ context.Context, events []*models.JourneyEvent, positions []*models.Position) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, e := range events {
		f.nextID++
		e.ID = f.nextID
		f.events = append(f.events, e)
	}
	for _, p := range positions {
		p.Consumed = true
	}
	return nil
}

func (f *fakeEvents) Create(_ context.Context, event *models.JourneyEvent) error {
	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) Update(_ context.Context, event *models.JourneyEvent) error {
	f.updates++
	for i, e := range f.events {
		if e.ID == event.ID {
			f.events[i] = event
			return nil
		}
	}
	return fmt.Errorf("event %d: %w", event.ID, models.ErrNotFound)
}

func (f *fakeEvents) GetByID(_ context.Context, id int64) (*models.JourneyEvent, error) {
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, fmt.Errorf("event %d: %w", id, models.ErrNotFound)
}

func (f *fakeEvents) Delete(_ context.Context, id int64) error {
	for i, e := range f.events {
		if e.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %d: %w", id, models.ErrNotFound)
}

func (f *fakeEvents) FindByVehicleAndType(_ context.Context, vehicleID int64, typeName string, from, to time.Time) ([]*models.JourneyEvent, error) {
	var out []*models.JourneyEvent
	for _, e := range f.events {
		if e.VehicleID != vehicleID || e.TypeName != typeName {
			continue
		}
		if e.StartTime.Before(from) || e.StartTime.After(to) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeEvents) FindByVehicleDriverAndType(ctx context.Context, vehicleID, driverID int64, typeName string, from, to time.Time) ([]*models.JourneyEvent, error) {
	all, err := f.FindByVehicleAndType(ctx, vehicleID, typeName, from, to)
	if err != nil {
		return nil, err
	}
	var out []*models.JourneyEvent
	for _, e := range all {
		if e.DriverID == driverID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) ListApprovedByDriver(_ context.Context, driverID int64, since time.Time) ([]*models.JourneyEvent, error) {
	var out []*models.JourneyEvent
	for _, e := range f.events {
		if e.DriverID == driverID && e.Approved && !e.StartTime.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEvents) ListUnapprovedAuto(_ context.Context, vehicleID int64, from, to *time.Time) ([]*models.JourneyEvent, error) {
	var out []*models.JourneyEvent
	for _, e := range f.events {
		if e.VehicleID != vehicleID || e.Approved || !e.AutoClassified {
			continue
		}
		if from != nil && e.StartTime.Before(*from) {
			continue
		}
		if to != nil && e.StartTime.After(*to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeIntegrations struct {
	fuel         []*models.FuelRecord
	checklists   []*models.ChecklistRecord
	maintenances []*models.MaintenanceRecord
}

func (f *fakeIntegrations) UpdateFuel(_ context.Context, _ *models.FuelRecord) error {
	return nil
}

func (f *fakeIntegrations) UpdateChecklist(_ context.Context, _ *models.ChecklistRecord) error {
	return nil
}

func (f *fakeIntegrations) UpdateMaintenance(_ context.Context, _ *models.MaintenanceRecord) error {
	return nil
}

func (f *fakeIntegrations) ListPendingFuel(_ context.Context) ([]*models.FuelRecord, error) {
	var out []*models.FuelRecord
	for _, r := range f.fuel {
		if !r.Processed {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeIntegrations) ListPendingChecklist(_ context.Context) ([]*models.ChecklistRecord, error) {
	var out []*models.ChecklistRecord
	for _, r := range f.checklists {
		if !r.Processed {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeIntegrations) ListPendingMaintenance(_ context.Context) ([]*models.MaintenanceRecord, error) {
	var out []*models.MaintenanceRecord
	for _, r := range f.maintenances {
		if !r.Processed {
			out = append(out, r)
		}
	}
	return out, nil
}

func fullCatalog() classifier.Catalog {
	catalog := make(classifier.Catalog)
	names := []classifier.TypeCode{
		classifier.CodeDriving, classifier.CodeInterShiftRest,
		classifier.CodeFueling, classifier.CodeLoading,
		classifier.CodeUnloading, classifier.CodeMeal,
		classifier.CodeSnack, classifier.CodeMaintenance,
		classifier.CodeChecklist, classifier.CodeOther,
	}
	for i, name := range names {
		catalog[string(name)] = &models.EventType{
			ID:     int64(i + 1),
			Name:   string(name),
			Active: true,
		}
	}
	return catalog
}

func driverID(v int64) *int64 { return &v }

func testTime(hour, minute int) time.Time {
	return time.Date(2025, 6, 21, hour, minute, 0, 0, time.UTC)
}

func trackSample(id int64, vehicleID int64, at time.Time, speed int, landmark string) *models.Position {
	return &models.Position{
		ID:         id,
		VehicleID:  vehicleID,
		RecordedAt: at,
		Speed:      speed,
		Landmark:   landmark,
	}
}

func newTestEngine(positions *fakePositions, vehicles *fakeVehicles, catalog *fakeCatalog, events *fakeEvents) *TripEngine {
	return NewTripEngine(positions, vehicles, catalog, events, 0, 0, zap.NewNop())
}

func TestClassifyVehiclePersistsEventsAndConsumes(t *testing.T) {
	positions := &fakePositions{samples: []*models.Position{
		trackSample(1, 1, testTime(11, 0), 60, ""),
		trackSample(2, 1, testTime(11, 20), 55, ""),
		trackSample(3, 1, testTime(11, 40), 62, ""),
		trackSample(4, 1, testTime(12, 0), 0, "Restaurante Sabor Mineiro"),
		trackSample(5, 1, testTime(12, 20), 0, "Restaurante Sabor Mineiro"),
		trackSample(6, 1, testTime(12, 45), 0, "Restaurante Sabor Mineiro"),
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, Plate: "ABC1D23", DriverID: driverID(7)},
	}}
	events := &fakeEvents{}
	eng := newTestEngine(positions, vehicles, &fakeCatalog{catalog: fullCatalog()}, events)

	produced, err := eng.ClassifyVehicle(context.Background(), 1, nil, nil)
	if err != nil {
		t.Fatalf("classify vehicle: %v", err)
	}
	if len(produced) != 2 {
		t.Fatalf("expected 2 events, got %d", len(produced))
	}
	if produced[0].TypeName != string(classifier.CodeDriving) {
		t.Fatalf("expected Condução first, got %s", produced[0].TypeName)
	}
	if produced[1].TypeName != string(classifier.CodeMeal) {
		t.Fatalf("expected Almoço second, got %s", produced[1].TypeName)
	}
	for _, e := range produced {
		if e.ID == 0 {
			t.Fatalf("event was not persisted: %+v", e)
		}
		if e.DriverID != 7 {
			t.Fatalf("expected driver 7, got %d", e.DriverID)
		}
	}
	for _, p := range positions.samples {
		if !p.Consumed {
			t.Fatalf("position %d not marked consumed", p.ID)
		}
	}
}

func TestClassifyVehicleNoPendingPositions(t *testing.T) {
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, DriverID: driverID(7)},
	}}
	eng := newTestEngine(&fakePositions{}, vehicles, &fakeCatalog{catalog: fullCatalog()}, &fakeEvents{})

	produced, err := eng.ClassifyVehicle(context.Background(), 1, nil, nil)
	if err != nil {
		t.Fatalf("classify vehicle: %v", err)
	}
	if len(produced) != 0 {
		t.Fatalf("expected no events, got %d", len(produced))
	}
}

func TestClassifyVehicleWithoutDriverIsConfigError(t *testing.T) {
	positions := &fakePositions{samples: []*models.Position{
		trackSample(1, 1, testTime(8, 0), 0, ""),
		trackSample(2, 1, testTime(8, 30), 0, ""),
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, Plate: "ABC1D23"},
	}}
	eng := newTestEngine(positions, vehicles, &fakeCatalog{catalog: fullCatalog()}, &fakeEvents{})

	_, err := eng.ClassifyVehicle(context.Background(), 1, nil, nil)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestClassifyVehicleUnknownVehicleIsNotFound(t *testing.T) {
	positions := &fakePositions{samples: []*models.Position{
		trackSample(1, 2, testTime(8, 0), 0, ""),
		trackSample(2, 2, testTime(8, 30), 0, ""),
	}}
	eng := newTestEngine(positions, &fakeVehicles{vehicles: map[int64]*models.Vehicle{}}, &fakeCatalog{catalog: fullCatalog()}, &fakeEvents{})

	_, err := eng.ClassifyVehicle(context.Background(), 2, nil, nil)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrConfig) {
		t.Fatalf("not-found must not be reported as a configuration error")
	}
}

func TestClassifyVehicleMissingCatalogTypeIsConfigError(t *testing.T) {
	positions := &fakePositions{samples: []*models.Position{
		trackSample(1, 1, testTime(12, 0), 0, "Restaurante"),
		trackSample(2, 1, testTime(12, 50), 0, "Restaurante"),
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, DriverID: driverID(7)},
	}}
	catalog := fullCatalog()
	delete(catalog, string(classifier.CodeMeal))
	eng := newTestEngine(positions, vehicles, &fakeCatalog{catalog: catalog}, &fakeEvents{})

	_, err := eng.ClassifyVehicle(context.Background(), 1, nil, nil)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if !errors.Is(err, classifier.ErrCatalogMissing) {
		t.Fatalf("expected wrapped ErrCatalogMissing, got %v", err)
	}
}

func TestClassifyVehicleSaveFailureLeavesPositionsPending(t *testing.T) {
	positions := &fakePositions{samples: []*models.Position{
		trackSample(1, 1, testTime(11, 0), 60, ""),
		trackSample(2, 1, testTime(11, 40), 60, ""),
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, DriverID: driverID(7)},
	}}
	events := &fakeEvents{saveErr: errors.New("connection reset")}
	eng := newTestEngine(positions, vehicles, &fakeCatalog{catalog: fullCatalog()}, events)

	_, err := eng.ClassifyVehicle(context.Background(), 1, nil, nil)
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	for _, p := range positions.samples {
		if p.Consumed {
			t.Fatalf("position %d marked consumed despite failed save", p.ID)
		}
	}
}

func TestClassifyVehicleTimeWindowBoundsInput(t *testing.T) {
	positions := &fakePositions{samples: []*models.Position{
		trackSample(1, 1, testTime(7, 0), 0, ""),
		trackSample(2, 1, testTime(11, 0), 60, ""),
		trackSample(3, 1, testTime(11, 40), 60, ""),
		trackSample(4, 1, testTime(18, 0), 0, ""),
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, DriverID: driverID(7)},
	}}
	events := &fakeEvents{}
	eng := newTestEngine(positions, vehicles, &fakeCatalog{catalog: fullCatalog()}, events)

	from := testTime(10, 0)
	to := testTime(12, 0)
	produced, err := eng.ClassifyVehicle(context.Background(), 1, &from, &to)
	if err != nil {
		t.Fatalf("classify vehicle: %v", err)
	}
	if len(produced) != 1 || produced[0].TypeName != string(classifier.CodeDriving) {
		t.Fatalf("expected one Condução event from windowed samples, got %+v", produced)
	}
	if positions.samples[0].Consumed || positions.samples[3].Consumed {
		t.Fatalf("samples outside the window must stay pending")
	}
}
