package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/models"
)

func newTestCorrelator(events *fakeEvents, vehicles *fakeVehicles, integrations *fakeIntegrations) *Correlator {
	return NewCorrelator(events, vehicles, &fakeCatalog{catalog: fullCatalog()}, integrations, zap.NewNop())
}

func fuelEvent(id, vehicleID int64, at time.Time) *models.JourneyEvent {
	return &models.JourneyEvent{
		ID:             id,
		VehicleID:      vehicleID,
		DriverID:       7,
		TypeName:       string(classifier.CodeFueling),
		StartTime:      at,
		Observations:   "Abastecimento em Posto Shell",
		AutoClassified: true,
	}
}

func TestCorrelateFuelWithinTolerance(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{fuelEvent(1, 1, testTime(14, 30))}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	liters, cost := 45.5, 320.0
	rec := &models.FuelRecord{ID: 10, VehicleID: 1, RecordedAt: testTime(14, 45), Liters: &liters, Cost: &cost}

	matched, err := cor.CorrelateFuel(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("expected a match 15 minutes after the event start")
	}
	if rec.EventID == nil || *rec.EventID != 1 {
		t.Fatalf("record not linked to event 1: %+v", rec.EventID)
	}
	got := events.events[0].Observations
	if !strings.Contains(got, " | Dados: 45.5L - R$ 320.00") {
		t.Fatalf("annotation not merged, got %q", got)
	}
}

func TestCorrelateFuelWritesFullTextWhenObservationEmpty(t *testing.T) {
	event := fuelEvent(1, 1, testTime(14, 30))
	event.Observations = ""
	events := &fakeEvents{events: []*models.JourneyEvent{event}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	liters, cost := 45.5, 320.0
	rec := &models.FuelRecord{ID: 10, VehicleID: 1, RecordedAt: testTime(14, 45), Liters: &liters, Cost: &cost}

	matched, err := cor.CorrelateFuel(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("expected a match")
	}
	if got := events.events[0].Observations; got != "Abastecimento: 45.5L - R$ 320.00" {
		t.Fatalf("unexpected observation %q", got)
	}
}

func TestCorrelateChecklistWritesFullTextWhenObservationEmpty(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{{
		ID:        1,
		VehicleID: 1,
		DriverID:  7,
		TypeName:  string(classifier.CodeChecklist),
		StartTime: testTime(6, 0),
	}}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	rec := &models.ChecklistRecord{ID: 20, VehicleID: 1, DriverID: 7, RecordedAt: testTime(6, 10), Kind: "saida", Status: "aprovado"}
	matched, err := cor.CorrelateChecklist(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("expected a match")
	}
	if got := events.events[0].Observations; got != "Check List saida - Status: aprovado" {
		t.Fatalf("unexpected observation %q", got)
	}
}

func TestCorrelateMaintenanceWritesFullTextWhenObservationEmpty(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{{
		ID:        1,
		VehicleID: 1,
		DriverID:  7,
		TypeName:  string(classifier.CodeMaintenance),
		StartTime: testTime(9, 0),
	}}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	rec := &models.MaintenanceRecord{
		ID: 30, VehicleID: 1, RecordedAt: testTime(9, 30),
		Workshop: "Oficina Central", Description: "troca de óleo",
	}
	matched, err := cor.CorrelateMaintenance(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("expected a match")
	}
	if got := events.events[0].Observations; got != "Manutenção em Oficina Central: troca de óleo" {
		t.Fatalf("unexpected observation %q", got)
	}
}

func TestCorrelateFuelOutsideTolerance(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{fuelEvent(1, 1, testTime(14, 30))}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	rec := &models.FuelRecord{ID: 10, VehicleID: 1, RecordedAt: testTime(15, 31)}
	matched, err := cor.CorrelateFuel(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if matched || rec.EventID != nil {
		t.Fatalf("expected no match 61 minutes away")
	}
}

func TestCorrelateFuelIdempotent(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{fuelEvent(1, 1, testTime(14, 30))}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	linked := int64(1)
	rec := &models.FuelRecord{ID: 10, VehicleID: 1, RecordedAt: testTime(14, 45), EventID: &linked}

	matched, err := cor.CorrelateFuel(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("already-linked record should report matched")
	}
	if events.updates != 0 {
		t.Fatalf("re-correlating a linked record must not touch the event, got %d updates", events.updates)
	}
}

func TestCorrelateFuelPicksFirstByStartTime(t *testing.T) {
	// 14:35 is nearer to the record than 14:20; the earlier event still
	// wins because matching is first-found over a start-ordered list.
	events := &fakeEvents{events: []*models.JourneyEvent{
		fuelEvent(2, 1, testTime(14, 35)),
		fuelEvent(1, 1, testTime(14, 20)),
	}, nextID: 2}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	rec := &models.FuelRecord{ID: 10, VehicleID: 1, RecordedAt: testTime(14, 30)}
	matched, err := cor.CorrelateFuel(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched || rec.EventID == nil || *rec.EventID != 1 {
		t.Fatalf("expected link to the earliest-starting event, got %+v", rec.EventID)
	}
}

func TestCorrelateChecklistIsDriverScoped(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{{
		ID:        1,
		VehicleID: 1,
		DriverID:  7,
		TypeName:  string(classifier.CodeChecklist),
		StartTime: testTime(6, 0),
	}}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	other := &models.ChecklistRecord{ID: 20, VehicleID: 1, DriverID: 8, RecordedAt: testTime(6, 10), Kind: "saida", Status: "aprovado"}
	matched, err := cor.CorrelateChecklist(context.Background(), other)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if matched {
		t.Fatalf("checklist of another driver must not match")
	}

	same := &models.ChecklistRecord{ID: 21, VehicleID: 1, DriverID: 7, RecordedAt: testTime(6, 10), Kind: "saida", Status: "aprovado"}
	matched, err = cor.CorrelateChecklist(context.Background(), same)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("expected same-driver checklist to match")
	}
	if !strings.Contains(events.events[0].Observations, "Status: aprovado") {
		t.Fatalf("annotation not merged, got %q", events.events[0].Observations)
	}
}

func TestCorrelateMaintenanceTolerance(t *testing.T) {
	events := &fakeEvents{events: []*models.JourneyEvent{{
		ID:        1,
		VehicleID: 1,
		DriverID:  7,
		TypeName:  string(classifier.CodeMaintenance),
		StartTime: testTime(9, 0),
	}}, nextID: 1}
	cor := newTestCorrelator(events, &fakeVehicles{}, &fakeIntegrations{})

	rec := &models.MaintenanceRecord{
		ID: 30, VehicleID: 1, RecordedAt: testTime(9, 55),
		Workshop: "Oficina Central", Description: "troca de óleo",
	}
	matched, err := cor.CorrelateMaintenance(context.Background(), rec)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if !matched {
		t.Fatalf("expected match 55 minutes after the event start")
	}
	if !strings.Contains(events.events[0].Observations, "Oficina Central: troca de óleo") {
		t.Fatalf("annotation not merged, got %q", events.events[0].Observations)
	}
}

func TestProcessPendingFuelMergesXorSynthesizes(t *testing.T) {
	linked := int64(1)
	liters := 50.0
	integrations := &fakeIntegrations{fuel: []*models.FuelRecord{
		{ID: 10, VehicleID: 1, RecordedAt: testTime(14, 45), EventID: &linked},
		{ID: 11, VehicleID: 1, RecordedAt: testTime(16, 0), Station: "Posto Ipiranga BR-381", Liters: &liters},
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, DriverID: driverID(7)},
	}}
	events := &fakeEvents{events: []*models.JourneyEvent{fuelEvent(1, 1, testTime(14, 30))}, nextID: 1}
	cor := newTestCorrelator(events, vehicles, integrations)

	result, err := cor.ProcessPendingFuel(context.Background())
	if err != nil {
		t.Fatalf("process pending fuel: %v", err)
	}
	if result.Linked != 1 || result.Synthesized != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// The linked record was only marked processed, never synthesized.
	if len(events.events) != 2 {
		t.Fatalf("expected exactly one synthesized event, have %d total", len(events.events))
	}
	synth := events.events[1]
	if synth.TypeName != string(classifier.CodeFueling) {
		t.Fatalf("expected synthesized Abastecimento, got %s", synth.TypeName)
	}
	if synth.DurationMin == nil || *synth.DurationMin != 20 {
		t.Fatalf("expected 20-minute synthesized event, got %+v", synth.DurationMin)
	}
	if !strings.Contains(synth.Observations, "Abastecimento automático - Posto Ipiranga BR-381 - 50.0L") {
		t.Fatalf("unexpected synthesized observation %q", synth.Observations)
	}
	for _, rec := range integrations.fuel {
		if !rec.Processed {
			t.Fatalf("record %d not marked processed", rec.ID)
		}
		if rec.EventID == nil {
			t.Fatalf("record %d left without an event link", rec.ID)
		}
	}
}

func TestProcessPendingFuelSkipsDriverlessVehicle(t *testing.T) {
	integrations := &fakeIntegrations{fuel: []*models.FuelRecord{
		{ID: 10, VehicleID: 1, RecordedAt: testTime(16, 0)},
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1},
	}}
	cor := newTestCorrelator(&fakeEvents{}, vehicles, integrations)

	result, err := cor.ProcessPendingFuel(context.Background())
	if err != nil {
		t.Fatalf("process pending fuel: %v", err)
	}
	if result.Skipped != 1 || result.Synthesized != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if integrations.fuel[0].Processed {
		t.Fatalf("skipped record must stay pending")
	}
}

func TestProcessPendingChecklistSynthesizes(t *testing.T) {
	integrations := &fakeIntegrations{checklists: []*models.ChecklistRecord{
		{ID: 20, VehicleID: 1, DriverID: 8, RecordedAt: testTime(6, 0), Kind: "saida", Status: "aprovado"},
	}}
	events := &fakeEvents{}
	cor := newTestCorrelator(events, &fakeVehicles{}, integrations)

	result, err := cor.ProcessPendingChecklist(context.Background())
	if err != nil {
		t.Fatalf("process pending checklists: %v", err)
	}
	if result.Synthesized != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	synth := events.events[0]
	if synth.DriverID != 8 {
		t.Fatalf("synthesized checklist event must use the record's driver, got %d", synth.DriverID)
	}
	if synth.DurationMin == nil || *synth.DurationMin != 15 {
		t.Fatalf("expected 15-minute event, got %+v", synth.DurationMin)
	}
	if synth.Observations != "Check List saida - Status: aprovado" {
		t.Fatalf("unexpected observation %q", synth.Observations)
	}
}

func TestProcessPendingMaintenanceDurationByKind(t *testing.T) {
	integrations := &fakeIntegrations{maintenances: []*models.MaintenanceRecord{
		{ID: 30, VehicleID: 1, RecordedAt: testTime(8, 0), Kind: "preventiva", Workshop: "Oficina A"},
		{ID: 31, VehicleID: 1, RecordedAt: testTime(9, 0), Kind: "corretiva", Workshop: "Oficina B"},
		{ID: 32, VehicleID: 1, RecordedAt: testTime(10, 0), Kind: "revisao", Workshop: "Oficina C"},
	}}
	vehicles := &fakeVehicles{vehicles: map[int64]*models.Vehicle{
		1: {ID: 1, DriverID: driverID(7)},
	}}
	events := &fakeEvents{}
	cor := newTestCorrelator(events, vehicles, integrations)

	result, err := cor.ProcessPendingMaintenance(context.Background())
	if err != nil {
		t.Fatalf("process pending maintenance: %v", err)
	}
	if result.Synthesized != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}

	want := []int{180, 240, 120}
	for i, event := range events.events {
		if event.DurationMin == nil || *event.DurationMin != want[i] {
			t.Fatalf("event %d: expected %d minutes, got %+v", i, want[i], event.DurationMin)
		}
	}
}
