package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcmelo/jornada/internal/classifier"
	"github.com/rcmelo/jornada/internal/models"
)

// DurationStats aggregates event durations for one event type.
type DurationStats struct {
	Count   int     `json:"count"`
	MeanMin float64 `json:"mean_min"`
	MinMin  int     `json:"min_min"`
	MaxMin  int     `json:"max_min"`
}

// DriverHistory is the read-only aggregation over a driver's approved
// events in a trailing window.
type DriverHistory struct {
	DriverID          int64                     `json:"driver_id"`
	Days              int                       `json:"days"`
	TotalEvents       int                       `json:"total_events"`
	MealHourHistogram map[int]int               `json:"meal_hour_histogram"`
	FrequentLocations map[string]int            `json:"frequent_locations"`
	DurationByType    map[string]*DurationStats `json:"duration_by_type"`
}

// Suggestion flags one unapproved auto-classified event whose duration
// or time of day looks wrong for its type.
type Suggestion struct {
	Event      *models.JourneyEvent `json:"event"`
	Issues     []string             `json:"issues"`
	Confidence string               `json:"confidence"`
}

// PatternAnalyzer computes driver history aggregates and review
// suggestions. It never mutates anything.
type PatternAnalyzer struct {
	events  EventStore
	catalog CatalogStore
	logger  *zap.Logger
}

// NewPatternAnalyzer wires the analyzer.
func NewPatternAnalyzer(events EventStore, catalog CatalogStore, logger *zap.Logger) *PatternAnalyzer {
	return &PatternAnalyzer{events: events, catalog: catalog, logger: logger}
}

// AnalyzeDriverHistory aggregates the driver's approved events over the
// trailing number of days: meal start-hour histogram, start-location
// frequency and per-type duration statistics.
func (a *PatternAnalyzer) AnalyzeDriverHistory(ctx context.Context, driverID int64, days int) (*DriverHistory, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	events, err := a.events.ListApprovedByDriver(ctx, driverID, since)
	if err != nil {
		return nil, fmt.Errorf("load approved events for driver %d: %w", driverID, err)
	}

	history := &DriverHistory{
		DriverID:          driverID,
		Days:              days,
		TotalEvents:       len(events),
		MealHourHistogram: make(map[int]int),
		FrequentLocations: make(map[string]int),
		DurationByType:    make(map[string]*DurationStats),
	}

	for _, event := range events {
		if event.TypeName == string(classifier.CodeMeal) {
			history.MealHourHistogram[event.StartTime.Hour()]++
		}
		if event.StartAddress != "" {
			history.FrequentLocations[event.StartAddress]++
		}
		if event.DurationMin == nil {
			continue
		}
		d := *event.DurationMin
		stats, ok := history.DurationByType[event.TypeName]
		if !ok {
			stats = &DurationStats{MinMin: d, MaxMin: d}
			history.DurationByType[event.TypeName] = stats
		}
		stats.Count++
		stats.MeanMin += float64(d)
		if d < stats.MinMin {
			stats.MinMin = d
		}
		if d > stats.MaxMin {
			stats.MaxMin = d
		}
	}
	for _, stats := range history.DurationByType {
		stats.MeanMin /= float64(stats.Count)
	}

	return history, nil
}

// SuggestImprovements flags unapproved auto-classified events of a
// vehicle whose duration falls outside the type's configured bounds, or
// whose meal start hour is outside both the lunch and dinner windows.
// Events with no flag are omitted.
func (a *PatternAnalyzer) SuggestImprovements(ctx context.Context, vehicleID int64, from, to *time.Time) ([]*Suggestion, error) {
	events, err := a.events.ListUnapprovedAuto(ctx, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load unapproved events for vehicle %d: %w", vehicleID, err)
	}
	catalog, err := a.catalog.ActiveTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load event type catalog: %w", err)
	}

	var suggestions []*Suggestion
	for _, event := range events {
		var issues []string

		if def, ok := catalog[event.TypeName]; ok && event.DurationMin != nil {
			if def.MinDurationMin != nil && *event.DurationMin < *def.MinDurationMin {
				issues = append(issues, fmt.Sprintf("Duração muito curta para %s", event.TypeName))
			}
			if def.MaxDurationMin != nil && *event.DurationMin > *def.MaxDurationMin {
				issues = append(issues, fmt.Sprintf("Duração muito longa para %s", event.TypeName))
			}
		}

		if event.TypeName == string(classifier.CodeMeal) {
			hour := event.StartTime.Hour()
			lunch := hour >= 11 && hour <= 14
			dinner := hour >= 18 && hour <= 21
			if !lunch && !dinner {
				issues = append(issues, "Horário atípico para refeição")
			}
		}

		if len(issues) == 0 {
			continue
		}
		suggestions = append(suggestions, &Suggestion{
			Event:      event,
			Issues:     issues,
			Confidence: "baixa",
		})
	}

	return suggestions, nil
}
