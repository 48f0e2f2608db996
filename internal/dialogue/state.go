// Package dialogue implements the activity-finder conversation: a state value,
// a transition function over one user action, and a render pass that derives
// the reply from the post-transition state.
package dialogue

import (
	"github.com/klamlamwork/playroom/internal/model"
)

// Step is a top-level conversation state.
type Step string

const (
	StepSelectPeople    Step = "select_people"
	StepPeopleMenu      Step = "people_menu"
	StepFoundationIntro Step = "foundation_intro"
	StepNextUnfinished  Step = "next_unfinished_activity"
	StepSetRoutines     Step = "set_routines_suggestion"
	StepSeeRoutines     Step = "see_today_routines"
	StepPlanActivities  Step = "plan_activities"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepSelectPeople, StepPeopleMenu, StepFoundationIntro, StepNextUnfinished,
		StepSetRoutines, StepSeeRoutines, StepPlanActivities:
		return true
	}
	return false
}

// Substep refines StepPlanActivities.
type Substep string

const (
	SubstepNone            Substep = ""
	SubstepPreferFormat    Substep = "prefer_format"
	SubstepTimePreference  Substep = "time_preference"
	SubstepTimeInput       Substep = "time_input"
	SubstepPlacePreference Substep = "place_preference"
	SubstepPlaceChoice     Substep = "place_choice"
	SubstepResults         Substep = "results"
)

// Action is the single user action carried by a request.
type Action string

const (
	ActionSelect         Action = "select"
	ActionSubmit         Action = "submit"
	ActionBack           Action = "back"
	ActionWhereToStart   Action = "where_to_start"
	ActionContinue       Action = "continue_journey"
	ActionSetRoutines    Action = "set_routines"
	ActionSeeRoutines    Action = "see_routines"
	ActionPlanActivities Action = "plan_activities"
	ActionNoAnother      Action = "no_another"
	ActionCasual         Action = "casual"
	ActionFormal         Action = "formal"
	ActionYes            Action = "yes"
	ActionNo             Action = "no"
	ActionIndoor         Action = "indoor"
	ActionOutdoor        Action = "outdoor"
)

// Format is the preferred activity formality.
type Format string

const (
	FormatAny    Format = ""
	FormatCasual Format = "casual"
	FormatFormal Format = "formal"
)

// PersonType distinguishes selected adults from kids.
type PersonType string

const (
	PersonCaregiver PersonType = "caregiver"
	PersonKid       PersonType = "kid"
)

// Person is one selected participant.
type Person struct {
	Type        PersonType `json:"type"`
	ID          int64      `json:"id"`
	DisplayName string     `json:"display_name"`
}

// TimeWindow holds local wall-clock bounds without a timezone.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// State is the per-session conversation state.
type State struct {
	Step                  Step        `json:"step"`
	Substep               Substep     `json:"substep,omitempty"`
	SelectedPersons       []Person    `json:"selected_persons"`
	AskedWhereToStart     bool        `json:"asked_where_to_start"`
	PreferFormat          Format      `json:"prefer_format,omitempty"`
	TimeWindow            *TimeWindow `json:"time_window,omitempty"`
	Place                 model.Place `json:"place,omitempty"`
	UnfinishedActivityIDs []int64     `json:"unfinished_activity_ids"`
	SuggestIndex          int         `json:"suggest_index"`
}

// Initial returns the state of a fresh or reset conversation.
func Initial() State {
	return State{
		Step:                  StepSelectPeople,
		SelectedPersons:       []Person{},
		UnfinishedActivityIDs: []int64{},
	}
}

// Clone returns a deep copy so transitions never alias the caller's slices.
func (s State) Clone() State {
	c := s
	c.SelectedPersons = append([]Person{}, s.SelectedPersons...)
	c.UnfinishedActivityIDs = append([]int64{}, s.UnfinishedActivityIDs...)
	if s.TimeWindow != nil {
		tw := *s.TimeWindow
		c.TimeWindow = &tw
	}
	return c
}

// KidIDs returns the ids of selected kids in selection order.
func (s State) KidIDs() []int64 {
	var ids []int64
	for _, p := range s.SelectedPersons {
		if p.Type == PersonKid {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// SelectedKids returns the selected kid entries.
func (s State) SelectedKids() []Person {
	var kids []Person
	for _, p := range s.SelectedPersons {
		if p.Type == PersonKid {
			kids = append(kids, p)
		}
	}
	return kids
}

// HasKids reports whether any selected person is a kid.
func (s State) HasKids() bool {
	return len(s.KidIDs()) > 0
}

// Input is one user action plus its optional payload.
type Input struct {
	Action       Action  `json:"action"`
	CaregiverIDs []int64 `json:"caregiver_ids,omitempty"`
	KidIDs       []int64 `json:"kid_ids,omitempty"`
	StartTime    string  `json:"start_time,omitempty"`
	EndTime      string  `json:"end_time,omitempty"`
}
