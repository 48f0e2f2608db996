package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klamlamwork/playroom/internal/model"
)

func household() *model.Household {
	return &model.Household{
		Account:    &model.Account{ID: 1, Role: model.RoleCaregiver},
		Caregivers: []model.Caregiver{{ID: 10, AccountID: 1, FirstName: "Alex"}},
		Kids: []model.Kid{
			{ID: 20, AccountID: 1, FirstName: "Mia"},
			{ID: 21, AccountID: 1, FirstName: "Leo"},
		},
	}
}

func planState(sub Substep) State {
	s := Initial()
	s.Step = StepPlanActivities
	s.Substep = sub
	s.SelectedPersons = []Person{{Type: PersonKid, ID: 20, DisplayName: "Mia"}}
	return s
}

func TestSelectPeopleKeepsOnlyHouseholdMembers(t *testing.T) {
	next, errText := Transition(Initial(), Input{
		Action:       ActionSelect,
		CaregiverIDs: []int64{10, 99},
		KidIDs:       []int64{21, 20, 21, 500},
	}, household())

	require.Empty(t, errText)
	assert.Equal(t, StepPeopleMenu, next.Step)
	assert.Equal(t, []Person{
		{Type: PersonCaregiver, ID: 10, DisplayName: "Alex"},
		{Type: PersonKid, ID: 21, DisplayName: "Leo"},
		{Type: PersonKid, ID: 20, DisplayName: "Mia"},
	}, next.SelectedPersons)
	assert.Equal(t, []int64{21, 20}, next.KidIDs())
}

func TestSelectPeopleRejectsEmptySelection(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"nothing selected", Input{Action: ActionSelect}},
		{"foreign ids only", Input{Action: ActionSelect, KidIDs: []int64{30}, CaregiverIDs: []int64{31}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, errText := Transition(Initial(), tt.in, household())
			assert.Equal(t, ErrTextEmptySelection, errText)
			assert.Equal(t, StepSelectPeople, next.Step)
			assert.Empty(t, next.SelectedPersons)
		})
	}
}

func TestPeopleMenuTransitions(t *testing.T) {
	base := Initial()
	base.Step = StepPeopleMenu

	tests := []struct {
		action  Action
		step    Step
		substep Substep
	}{
		{ActionWhereToStart, StepFoundationIntro, SubstepNone},
		{ActionContinue, StepNextUnfinished, SubstepNone},
		{ActionSetRoutines, StepSetRoutines, SubstepNone},
		{ActionSeeRoutines, StepSeeRoutines, SubstepNone},
		{ActionPlanActivities, StepPlanActivities, SubstepPreferFormat},
		{ActionBack, StepSelectPeople, SubstepNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			next, errText := Transition(base, Input{Action: tt.action}, household())
			require.Empty(t, errText)
			assert.Equal(t, tt.step, next.Step)
			assert.Equal(t, tt.substep, next.Substep)
		})
	}

	next, _ := Transition(base, Input{Action: ActionWhereToStart}, household())
	assert.True(t, next.AskedWhereToStart)
}

func TestUnknownActionKeepsState(t *testing.T) {
	base := Initial()
	base.Step = StepPeopleMenu

	next, errText := Transition(base, Input{Action: "dance"}, household())
	assert.Equal(t, ErrTextUnknownChoice, errText)
	assert.Equal(t, base, next)
}

func TestInfoStepsReturnToMenu(t *testing.T) {
	for _, step := range []Step{StepFoundationIntro, StepSetRoutines, StepSeeRoutines, StepNextUnfinished} {
		t.Run(string(step), func(t *testing.T) {
			s := Initial()
			s.Step = step
			next, errText := Transition(s, Input{Action: ActionBack}, household())
			require.Empty(t, errText)
			assert.Equal(t, StepPeopleMenu, next.Step)
		})
	}
}

func TestNoAnotherAdvancesCursor(t *testing.T) {
	s := Initial()
	s.Step = StepNextUnfinished
	s.UnfinishedActivityIDs = []int64{11, 12}

	next, _ := Transition(s, Input{Action: ActionNoAnother}, household())
	assert.Equal(t, 1, next.SuggestIndex)
	assert.Equal(t, StepNextUnfinished, next.Step)
	assert.Equal(t, 0, s.SuggestIndex)
}

func TestPlanChainForward(t *testing.T) {
	s := planState(SubstepPreferFormat)
	steps := []struct {
		in      Input
		substep Substep
	}{
		{Input{Action: ActionFormal}, SubstepTimePreference},
		{Input{Action: ActionYes}, SubstepTimeInput},
		{Input{Action: ActionSubmit, StartTime: "2026-06-06T10:00", EndTime: "2026-06-06T18:00"}, SubstepPlacePreference},
		{Input{Action: ActionYes}, SubstepPlaceChoice},
		{Input{Action: ActionOutdoor}, SubstepResults},
	}
	for _, st := range steps {
		var errText string
		s, errText = Transition(s, st.in, household())
		require.Empty(t, errText)
		require.Equal(t, st.substep, s.Substep)
	}

	assert.Equal(t, FormatFormal, s.PreferFormat)
	assert.Equal(t, &TimeWindow{Start: "2026-06-06T10:00", End: "2026-06-06T18:00"}, s.TimeWindow)
	assert.Equal(t, model.PlaceOutdoor, s.Place)
}

func TestPlanNoAnswersClearPreferences(t *testing.T) {
	s := planState(SubstepTimePreference)
	s.TimeWindow = &TimeWindow{Start: "2026-06-06T10:00", End: "2026-06-06T11:00"}

	s, _ = Transition(s, Input{Action: ActionNo}, household())
	assert.Nil(t, s.TimeWindow)
	assert.Equal(t, SubstepPlacePreference, s.Substep)

	s.Place = model.PlaceIndoor
	s, _ = Transition(s, Input{Action: ActionNo}, household())
	assert.Equal(t, model.Place(""), s.Place)
	assert.Equal(t, SubstepResults, s.Substep)
}

func TestTimeInputValidation(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"missing end", "2026-06-06T10:00", "", ErrTextTimeMissing},
		{"garbage", "tomorrow", "2026-06-06T10:00", ErrTextTimeMissing},
		{"end before start", "2026-06-06T18:00", "2026-06-06T10:00", ErrTextTimeOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, errText := Transition(planState(SubstepTimeInput), Input{Action: ActionSubmit, StartTime: tt.start, EndTime: tt.end}, household())
			assert.Equal(t, tt.want, errText)
			assert.Equal(t, SubstepTimeInput, next.Substep)
			assert.Nil(t, next.TimeWindow)
		})
	}

	next, errText := Transition(planState(SubstepTimeInput), Input{StartTime: "2026-06-06T10:00:00", EndTime: "2026-06-06T10:00:00"}, household())
	assert.Empty(t, errText)
	assert.Equal(t, SubstepPlacePreference, next.Substep)
}

func TestPlanBack(t *testing.T) {
	tests := []struct {
		from    Substep
		step    Step
		substep Substep
	}{
		{SubstepPreferFormat, StepPeopleMenu, SubstepNone},
		{SubstepTimePreference, StepPlanActivities, SubstepPreferFormat},
		{SubstepTimeInput, StepPlanActivities, SubstepTimePreference},
		{SubstepPlacePreference, StepPlanActivities, SubstepTimePreference},
		{SubstepPlaceChoice, StepPlanActivities, SubstepPlacePreference},
		{SubstepResults, StepPlanActivities, SubstepPlacePreference},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			next, errText := Transition(planState(tt.from), Input{Action: ActionBack}, household())
			require.Empty(t, errText)
			assert.Equal(t, tt.step, next.Step)
			assert.Equal(t, tt.substep, next.Substep)
		})
	}
}

func TestResultsOnlyAcceptsBack(t *testing.T) {
	next, errText := Transition(planState(SubstepResults), Input{Action: ActionYes}, household())
	assert.Equal(t, ErrTextUnknownChoice, errText)
	assert.Equal(t, SubstepResults, next.Substep)
}

func TestUnknownStepRestarts(t *testing.T) {
	s := Initial()
	s.Step = "bogus"

	next, _ := Transition(s, Input{Action: ActionSelect, KidIDs: []int64{20}}, household())
	assert.Equal(t, StepPeopleMenu, next.Step)
}

func TestTransitionIsDeterministicAndPure(t *testing.T) {
	s := planState(SubstepPlaceChoice)
	before := s.Clone()
	in := Input{Action: ActionIndoor}

	a, errA := Transition(s, in, household())
	b, errB := Transition(s, in, household())

	assert.Equal(t, a, b)
	assert.Equal(t, errA, errB)
	assert.Equal(t, before, s)
}
