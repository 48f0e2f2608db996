package dialogue

import (
	"context"
	"fmt"

	"github.com/klamlamwork/playroom/internal/model"
)

// JourneyPlanner computes the ordered curriculum point ids still pending for
// a set of kids.
type JourneyPlanner interface {
	Unfinished(ctx context.Context, kidIDs []int64) ([]int64, error)
}

// Turn is the outcome of applying one action.
type Turn struct {
	State State
	// Error is the inline message for a rejected action.
	Error string
	// Moved is true when Step or Substep changed.
	Moved bool
}

// Machine applies actions to conversation states.
type Machine struct {
	journey JourneyPlanner
}

// NewMachine creates a machine. A nil planner disables journey tracking.
func NewMachine(journey JourneyPlanner) *Machine {
	return &Machine{journey: journey}
}

// Apply performs at most one transition. Entering the people menu from any
// other step refreshes the unfinished-activity list and rewinds the cursor.
// A planner failure leaves the list empty and is returned alongside a
// usable turn.
func (m *Machine) Apply(ctx context.Context, s State, in Input, h *model.Household) (Turn, error) {
	next, errText := Transition(s, in, h)
	turn := Turn{
		State: next,
		Error: errText,
		Moved: next.Step != s.Step || next.Substep != s.Substep,
	}

	if next.Step != StepPeopleMenu || s.Step == StepPeopleMenu {
		return turn, nil
	}

	turn.State.UnfinishedActivityIDs = []int64{}
	turn.State.SuggestIndex = 0
	kidIDs := next.KidIDs()
	if m.journey == nil || len(kidIDs) == 0 {
		return turn, nil
	}
	ids, err := m.journey.Unfinished(ctx, kidIDs)
	if err != nil {
		return turn, fmt.Errorf("failed to compute unfinished activities: %w", err)
	}
	turn.State.UnfinishedActivityIDs = append([]int64{}, ids...)
	return turn, nil
}
