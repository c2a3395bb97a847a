package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rcmelo/jornada/internal/geo"
	"github.com/rcmelo/jornada/internal/models"
	"github.com/rcmelo/jornada/internal/segment"
)

// MinEventDurationMin: periods shorter than this are tracker noise and
// never produce an event.
const MinEventDurationMin = 5

// ErrCatalogMissing reports a rule resolving to an event type that is
// absent from the catalog. This is a configuration error, never dropped
// silently.
var ErrCatalogMissing = errors.New("event type missing from catalog")

// Catalog is a name-keyed snapshot of the active event types, injected
// per invocation.
type Catalog map[string]*models.EventType

// Lookup resolves a type code against the catalog.
func (c Catalog) Lookup(code TypeCode) (*models.EventType, error) {
	def, ok := c[string(code)]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", string(code), ErrCatalogMissing)
	}
	return def, nil
}

// Classifier turns segmented periods into journey event drafts.
type Classifier struct {
	catalog        Catalog
	minDurationMin int
}

// New creates a classifier over a catalog snapshot.
func New(catalog Catalog) *Classifier {
	return &Classifier{catalog: catalog, minDurationMin: MinEventDurationMin}
}

// NewWithGate creates a classifier with a custom minimum event duration.
// A non-positive gate falls back to the default.
func NewWithGate(catalog Catalog, minDurationMin int) *Classifier {
	if minDurationMin <= 0 {
		minDurationMin = MinEventDurationMin
	}
	return &Classifier{catalog: catalog, minDurationMin: minDurationMin}
}

// Classify produces the event draft for one period, or nil when the
// period is below the duration gate. The draft carries the resolved type
// and AutoClassified set; persistence is the caller's concern.
func (c *Classifier) Classify(p *segment.Period, vehicleID, driverID int64) (*models.JourneyEvent, error) {
	durationMin := int(p.End.RecordedAt.Sub(p.Start.RecordedAt).Minutes())
	if durationMin < c.minDurationMin {
		return nil, nil
	}

	var code TypeCode
	var observation string

	if p.Kind == segment.KindMoving {
		code = CodeDriving
		observation = fmt.Sprintf("Condução - Distância aproximada: %.1f km", DistanceKm(p))
	} else {
		code, observation = classifyStop(stopContext{
			durationMin: durationMin,
			startHour:   p.Start.RecordedAt.Hour(),
			location:    strings.ToLower(p.Start.Landmark + " " + p.Start.Address),
			place:       placeLabel(p.Start),
		})
	}

	def, err := c.catalog.Lookup(code)
	if err != nil {
		return nil, err
	}

	end := p.End.RecordedAt
	event := &models.JourneyEvent{
		VehicleID:      vehicleID,
		DriverID:       driverID,
		EventTypeID:    def.ID,
		TypeName:       def.Name,
		StartTime:      p.Start.RecordedAt,
		EndTime:        &end,
		DurationMin:    &durationMin,
		StartLatitude:  p.Start.Latitude,
		StartLongitude: p.Start.Longitude,
		EndLatitude:    p.End.Latitude,
		EndLongitude:   p.End.Longitude,
		StartAddress:   p.Start.Address,
		EndAddress:     p.End.Address,
		Observations:   observation,
		AutoClassified: true,
	}
	return event, nil
}

// DistanceKm sums the pairwise great-circle distance across consecutive
// samples of a period, in kilometers. Samples without a fix contribute 0.
func DistanceKm(p *segment.Period) float64 {
	var total float64
	for i := 1; i < len(p.Samples); i++ {
		prev, cur := p.Samples[i-1], p.Samples[i]
		total += geo.Distance(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return total / 1000
}

// placeLabel prefers the landmark over the address for observation text.
func placeLabel(p *models.Position) string {
	if p.Landmark != "" {
		return p.Landmark
	}
	return p.Address
}
