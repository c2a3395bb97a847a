package segment

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Motion states of the sample scan.
const (
	StateMoving  = "moving"
	StateStopped = "stopped"
)

// Motion events.
const (
	EventStartMoving = "start_moving"
	EventStop        = "stop"
)

// MotionMachine tracks the moving/stopped state while scanning a position
// stream. The onChange callback fires once per state flip.
type MotionMachine struct {
	fsm      *fsm.FSM
	onChange func(from, to string)
}

// NewMotionMachine creates a motion machine in the given initial state.
func NewMotionMachine(initial string, onChange func(from, to string)) *MotionMachine {
	if initial == "" {
		initial = StateStopped
	}

	m := &MotionMachine{onChange: onChange}

	m.fsm = fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: EventStartMoving, Src: []string{StateStopped}, Dst: StateMoving},
			{Name: EventStop, Src: []string{StateMoving}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onChange != nil && e.Src != e.Dst {
					m.onChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current returns the current motion state.
func (m *MotionMachine) Current() string {
	return m.fsm.Current()
}

// Observe feeds one motion observation. Returns true when the state
// flipped.
func (m *MotionMachine) Observe(moving bool) (bool, error) {
	state := StateStopped
	event := EventStop
	if moving {
		state = StateMoving
		event = EventStartMoving
	}

	if m.fsm.Current() == state {
		return false, nil
	}

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return false, fmt.Errorf("trigger event %s: %w", event, err)
	}
	return true, nil
}
