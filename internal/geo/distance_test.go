package geo

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestDistanceKnownValue(t *testing.T) {
	// One degree of longitude at the equator is about 111.2 km.
	got := Distance(ptr(0), ptr(0), ptr(0), ptr(1))
	want := 111195.0
	if math.Abs(got-want) > 100 {
		t.Fatalf("expected ~%.0f m, got %.0f m", want, got)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	lat1, lon1 := ptr(-19.5836), ptr(-42.6364) // Timóteo/MG
	lat2, lon2 := ptr(-19.9167), ptr(-43.9345) // Belo Horizonte/MG
	ab := Distance(lat1, lon1, lat2, lon2)
	ba := Distance(lat2, lon2, lat1, lon1)
	if math.Abs(ab-ba) > 1e-6 {
		t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
	}
	if ab <= 0 {
		t.Fatalf("expected positive distance, got %f", ab)
	}
}

func TestDistanceSamePoint(t *testing.T) {
	if got := Distance(ptr(10), ptr(20), ptr(10), ptr(20)); math.Abs(got) > 1e-6 {
		t.Fatalf("expected 0 for identical points, got %f", got)
	}
}

func TestDistanceMissingCoordinates(t *testing.T) {
	if got := Distance(nil, ptr(0), ptr(0), ptr(1)); got != 0 {
		t.Fatalf("expected 0 for missing latitude, got %f", got)
	}
	if got := Distance(ptr(0), ptr(0), ptr(0), nil); got != 0 {
		t.Fatalf("expected 0 for missing longitude, got %f", got)
	}
}
