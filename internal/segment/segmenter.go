package segment

import (
	"fmt"

	"github.com/rcmelo/jornada/internal/models"
)

// DefaultSpeedThresholdKmh: a sample above this speed counts as moving.
const DefaultSpeedThresholdKmh = 5

// Kind is the motion state shared by all samples of a period.
type Kind string

const (
	KindMoving  Kind = "moving"
	KindStopped Kind = "stopped"
)

// Period is a maximal contiguous run of samples sharing the same motion
// state. Periods partition the input sequence exactly: no gap, no
// overlap.
type Period struct {
	Kind    Kind
	Start   *models.Position
	End     *models.Position
	Samples []*models.Position
}

// Segmenter partitions an ordered position stream into moving/stopped
// periods.
type Segmenter struct {
	SpeedThresholdKmh int
}

// New creates a segmenter. A non-positive threshold falls back to the
// default.
func New(speedThresholdKmh int) *Segmenter {
	if speedThresholdKmh <= 0 {
		speedThresholdKmh = DefaultSpeedThresholdKmh
	}
	return &Segmenter{SpeedThresholdKmh: speedThresholdKmh}
}

// Moving reports whether a sample counts as moving.
func (s *Segmenter) Moving(p *models.Position) bool {
	return p.Speed > s.SpeedThresholdKmh
}

// Split scans the ordered samples left to right and returns the maximal
// same-state periods, in order. The final open period is closed at end of
// input. Empty input yields no periods.
func (s *Segmenter) Split(samples []*models.Position) ([]*Period, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	var periods []*Period
	var current *Period

	machine := NewMotionMachine(stateFor(s.Moving(samples[0])), func(from, to string) {
		periods = append(periods, current)
		current = nil
	})

	for _, p := range samples {
		if _, err := machine.Observe(s.Moving(p)); err != nil {
			return nil, fmt.Errorf("observe sample %d: %w", p.ID, err)
		}
		if current == nil {
			current = &Period{
				Kind:    kindFor(machine.Current()),
				Start:   p,
				End:     p,
				Samples: []*models.Position{p},
			}
			continue
		}
		current.End = p
		current.Samples = append(current.Samples, p)
	}

	// Close the trailing open period.
	periods = append(periods, current)

	return periods, nil
}

func stateFor(moving bool) string {
	if moving {
		return StateMoving
	}
	return StateStopped
}

func kindFor(state string) Kind {
	if state == StateMoving {
		return KindMoving
	}
	return KindStopped
}
