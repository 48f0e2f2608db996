package dialogue

import (
	"time"

	"github.com/klamlamwork/playroom/internal/model"
)

// Inline error texts shown when an action is rejected.
const (
	ErrTextEmptySelection = "Please select at least one person."
	ErrTextTimeMissing    = "Please provide both a start and an end time."
	ErrTextTimeOrder      = "The end time must be after the start time."
	ErrTextUnknownChoice  = "Please choose one of the options."
)

// Transition applies one action to s. It never mutates s; the returned
// error text is non-empty when the action was rejected and no transition
// happened.
func Transition(s State, in Input, h *model.Household) (State, string) {
	next := s.Clone()
	if !next.Step.Valid() {
		next = Initial()
	}

	switch next.Step {
	case StepSelectPeople:
		if in.Action == ActionBack {
			return next, ""
		}
		selected := resolvePersons(in, h)
		if len(selected) == 0 {
			return next, ErrTextEmptySelection
		}
		next.SelectedPersons = selected
		next.Step = StepPeopleMenu
		return next, ""

	case StepPeopleMenu:
		switch in.Action {
		case ActionWhereToStart:
			next.AskedWhereToStart = true
			next.Step = StepFoundationIntro
		case ActionContinue:
			next.Step = StepNextUnfinished
		case ActionSetRoutines:
			next.Step = StepSetRoutines
		case ActionSeeRoutines:
			next.Step = StepSeeRoutines
		case ActionPlanActivities:
			next.Step = StepPlanActivities
			next.Substep = SubstepPreferFormat
		case ActionBack:
			next.Step = StepSelectPeople
		default:
			return next, ErrTextUnknownChoice
		}
		return next, ""

	case StepFoundationIntro, StepSetRoutines, StepSeeRoutines:
		if in.Action != ActionBack {
			return next, ErrTextUnknownChoice
		}
		next.Step = StepPeopleMenu
		return next, ""

	case StepNextUnfinished:
		switch in.Action {
		case ActionNoAnother:
			next.SuggestIndex++
		case ActionBack:
			next.Step = StepPeopleMenu
		default:
			return next, ErrTextUnknownChoice
		}
		return next, ""

	case StepPlanActivities:
		return planTransition(next, in)
	}

	return next, ""
}

func planTransition(next State, in Input) (State, string) {
	if in.Action == ActionBack {
		switch next.Substep {
		case SubstepTimePreference:
			next.Substep = SubstepPreferFormat
		case SubstepTimeInput, SubstepPlacePreference:
			next.Substep = SubstepTimePreference
		case SubstepPlaceChoice, SubstepResults:
			next.Substep = SubstepPlacePreference
		default:
			next.Step = StepPeopleMenu
			next.Substep = SubstepNone
		}
		return next, ""
	}

	switch next.Substep {
	case SubstepPreferFormat:
		switch in.Action {
		case ActionCasual:
			next.PreferFormat = FormatCasual
		case ActionFormal:
			next.PreferFormat = FormatFormal
		default:
			return next, ErrTextUnknownChoice
		}
		next.Substep = SubstepTimePreference

	case SubstepTimePreference:
		switch in.Action {
		case ActionNo:
			next.TimeWindow = nil
			next.Substep = SubstepPlacePreference
		case ActionYes:
			next.Substep = SubstepTimeInput
		default:
			return next, ErrTextUnknownChoice
		}

	case SubstepTimeInput:
		window, errText := parseWindow(in.StartTime, in.EndTime)
		if errText != "" {
			return next, errText
		}
		next.TimeWindow = window
		next.Substep = SubstepPlacePreference

	case SubstepPlacePreference:
		switch in.Action {
		case ActionNo:
			next.Place = ""
			next.Substep = SubstepResults
		case ActionYes:
			next.Substep = SubstepPlaceChoice
		default:
			return next, ErrTextUnknownChoice
		}

	case SubstepPlaceChoice:
		switch in.Action {
		case ActionIndoor:
			next.Place = model.PlaceIndoor
		case ActionOutdoor:
			next.Place = model.PlaceOutdoor
		default:
			return next, ErrTextUnknownChoice
		}
		next.Substep = SubstepResults

	case SubstepResults:
		return next, ErrTextUnknownChoice

	default:
		// A plan state without substep restarts the chain.
		next.Substep = SubstepPreferFormat
	}
	return next, ""
}

func parseWindow(start, end string) (*TimeWindow, string) {
	if start == "" || end == "" {
		return nil, ErrTextTimeMissing
	}
	// Wall-clock order does not depend on the zone, so UTC is enough here.
	s, err := model.ParseWallClock(start, time.UTC)
	if err != nil {
		return nil, ErrTextTimeMissing
	}
	e, err := model.ParseWallClock(end, time.UTC)
	if err != nil {
		return nil, ErrTextTimeMissing
	}
	if e.Before(s) {
		return nil, ErrTextTimeOrder
	}
	return &TimeWindow{Start: start, End: end}, ""
}

// resolvePersons keeps only ids that belong to the household, caregivers first.
func resolvePersons(in Input, h *model.Household) []Person {
	selected := []Person{}
	if h == nil {
		return selected
	}
	seen := make(map[Person]bool)
	for _, id := range in.CaregiverIDs {
		if c, ok := h.Caregiver(id); ok {
			p := Person{Type: PersonCaregiver, ID: c.ID, DisplayName: c.FirstName}
			if !seen[p] {
				seen[p] = true
				selected = append(selected, p)
			}
		}
	}
	for _, id := range in.KidIDs {
		if k, ok := h.Kid(id); ok {
			p := Person{Type: PersonKid, ID: k.ID, DisplayName: k.FirstName}
			if !seen[p] {
				seen[p] = true
				selected = append(selected, p)
			}
		}
	}
	return selected
}
