package dialogue

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
)

// InputTypeDateTime asks the caller for a start/end date-time pair.
const InputTypeDateTime = "datetime"

// DefaultCourseDescription is shown when the active course has none.
const DefaultCourseDescription = "Explore the basics to build a strong mindset foundation."

// AdvisoryBadWeather is appended when adverse weather narrowed results to indoor.
const AdvisoryBadWeather = "Note: Bad weather today, so here are indoor activities instead."

// MaxRoutineSuggestions caps the routine suggestion list.
const MaxRoutineSuggestions = 6

// Option is a selectable (value, label) pair.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Link is a selectable entry that navigates to a page.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// PersonChoice is a pickable person on the first step.
type PersonChoice struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Reply is the rendered outcome of a turn.
type Reply struct {
	SessionID  string         `json:"session_id,omitempty"`
	Message    string         `json:"message"`
	Options    []Option       `json:"options"`
	Links      []Link         `json:"links,omitempty"`
	Step       Step           `json:"step"`
	Substep    Substep        `json:"substep,omitempty"`
	InputType  string         `json:"input_type,omitempty"`
	Error      string         `json:"error,omitempty"`
	Caregivers []PersonChoice `json:"caregivers,omitempty"`
	Kids       []PersonChoice `json:"kids,omitempty"`
}

// Results is the computed recommendation list.
type Results struct {
	Activities []model.Activity
	Advisory   string
}

// KidRoutines lists a kid's open routine instances for today.
type KidRoutines struct {
	Kid       Person
	Instances []model.RoutineInstance
}

// View carries the data snapshot the render pass needs for the current state.
type View struct {
	Household          *model.Household
	Error              string
	Course             *model.Course
	RoutineSuggestions []model.RoutineSuggestion
	TodayRoutines      []KidRoutines
	Today              time.Time
	Results            *Results
}

var backOption = Option{Value: string(ActionBack), Label: "Back"}

// Render derives the reply purely from the post-transition state and view.
func Render(s State, v View) Reply {
	r := Reply{
		Step:    s.Step,
		Substep: s.Substep,
		Error:   v.Error,
		Options: []Option{},
	}

	switch s.Step {
	case StepSelectPeople:
		r.Message = "Who do you want to ask about today?"
		if v.Household != nil {
			for _, c := range v.Household.Caregivers {
				r.Caregivers = append(r.Caregivers, PersonChoice{ID: c.ID, Name: c.FirstName})
			}
			for _, k := range v.Household.Kids {
				r.Kids = append(r.Kids, PersonChoice{ID: k.ID, Name: k.FirstName})
			}
		}

	case StepPeopleMenu:
		renderPeopleMenu(&r, s)

	case StepFoundationIntro:
		r.Message = foundationMessage(v.Course, &r)
		r.Options = []Option{{Value: string(ActionBack), Label: "Got it"}}

	case StepNextUnfinished:
		renderNextUnfinished(&r, s, v.Course)

	case StepSetRoutines:
		renderRoutineSuggestions(&r, s, v.RoutineSuggestions)

	case StepSeeRoutines:
		renderTodayRoutines(&r, s, v)

	case StepPlanActivities:
		renderPlan(&r, s, v.Results)
	}

	return r
}

func renderPeopleMenu(r *Reply, s State) {
	names := make([]string, 0, len(s.SelectedPersons))
	for _, p := range s.SelectedPersons {
		names = append(names, p.DisplayName)
	}
	persons := strings.Join(names, ", ")
	if persons == "" {
		persons = "you"
	}
	r.Message = fmt.Sprintf("What do %s want to do today?", persons)

	if !s.AskedWhereToStart {
		r.Options = append(r.Options, Option{Value: string(ActionWhereToStart), Label: "Where to start?"})
	}
	if len(s.UnfinishedActivityIDs) > 0 {
		r.Options = append(r.Options, Option{Value: string(ActionContinue), Label: "Continuing Foundation Journey"})
	}
	r.Options = append(r.Options,
		Option{Value: string(ActionSetRoutines), Label: "Set Routines"},
		Option{Value: string(ActionSeeRoutines), Label: "See Routines Today"},
		Option{Value: string(ActionPlanActivities), Label: "Plan activities"},
		backOption,
	)
}

func foundationMessage(course *model.Course, r *Reply) string {
	if course == nil {
		return "No foundation journey course found."
	}
	if len(course.Levels) == 0 {
		return "No levels found in the journey."
	}
	lowest := course.Levels[0]
	for _, l := range course.Levels[1:] {
		if l.Number < lowest.Number {
			lowest = l
		}
	}
	first := (&model.Course{Levels: []model.Level{lowest}}).OrderedPoints()
	if len(first) == 0 || first[0].Activity == nil {
		return "No first activity found in the journey."
	}
	fun := first[0].Activity
	description := course.Description
	if description == "" {
		description = DefaultCourseDescription
	}
	r.Links = []Link{{Label: fun.Name, URL: fun.Link()}}
	return fmt.Sprintf("Start with the Foundation Journey. Instructions: %s\nFirst 5-Min Fun: %s.", description, fun.Name)
}

func renderNextUnfinished(r *Reply, s State, course *model.Course) {
	if s.SuggestIndex >= len(s.UnfinishedActivityIDs) || course == nil {
		r.Message = "No more unfinished activities in the journey!"
		r.Options = []Option{backOption}
		return
	}
	point, ok := course.Point(s.UnfinishedActivityIDs[s.SuggestIndex])
	if !ok || point.Activity == nil {
		r.Message = "No more unfinished activities in the journey!"
		r.Options = []Option{backOption}
		return
	}
	fun := point.Activity
	r.Message = fmt.Sprintf("Here is the next 5-Min Fun: %s.\nInstructions: %s", fun.Name, fun.Instructions)
	r.Links = []Link{{Label: "Go Have Fun", URL: fun.Link()}}
	r.Options = []Option{
		{Value: string(ActionNoAnother), Label: "No, I want another one"},
		backOption,
	}
}

func renderRoutineSuggestions(r *Reply, s State, suggestions []model.RoutineSuggestion) {
	r.Options = []Option{backOption}
	if !s.HasKids() {
		r.Message = "No kids selected to suggest routines."
		return
	}
	if len(suggestions) == 0 {
		r.Message = "No new routines to suggest based on completed activities."
		return
	}
	if len(suggestions) > MaxRoutineSuggestions {
		suggestions = suggestions[:MaxRoutineSuggestions]
	}
	r.Message = "Suggested routines based on completed 5-Min Fun (prioritized by relevance):"
	for _, sug := range suggestions {
		r.Links = append(r.Links, Link{Label: sug.Routine.Name, URL: sug.Routine.Link()})
	}
	r.Links = append(r.Links, Link{Label: "No I want other ones", URL: "/events/routine/list/"})
}

func renderTodayRoutines(r *Reply, s State, v View) {
	r.Options = []Option{backOption}
	if !s.HasKids() {
		r.Message = "No kids selected to show routines."
		return
	}

	date := v.Today.Format(model.DateLayout)
	lines := []string{"Routines set but not done today:"}
	open := false
	for _, kr := range v.TodayRoutines {
		if len(kr.Instances) == 0 {
			lines = append(lines, fmt.Sprintf("%s: All done for today.", kr.Kid.DisplayName))
			continue
		}
		open = true
		lines = append(lines, kr.Kid.DisplayName+":")
		for _, inst := range kr.Instances {
			q := url.Values{}
			q.Set("open_modal", "true")
			q.Set("routine_instance_id", strconv.FormatInt(inst.ID, 10))
			q.Set("date", date)
			q.Set("kid_id", strconv.FormatInt(kr.Kid.ID, 10))
			r.Links = append(r.Links, Link{
				Label: kr.Kid.DisplayName + ": " + inst.Name,
				URL:   "/account/?" + q.Encode(),
			})
		}
	}
	if !open {
		r.Message = "No unfinished routines for today."
		r.Links = nil
		return
	}
	r.Message = strings.Join(lines, "\n")
}

func renderPlan(r *Reply, s State, results *Results) {
	switch s.Substep {
	case SubstepTimePreference:
		r.Message = "Do you have a time preference?"
		r.Options = yesNoBack()
	case SubstepTimeInput:
		r.Message = "Select start and end date/time"
		r.InputType = InputTypeDateTime
		r.Options = []Option{backOption}
	case SubstepPlacePreference:
		r.Message = "Do you have place preference?"
		r.Options = yesNoBack()
	case SubstepPlaceChoice:
		r.Message = "Indoor or Outdoor?"
		r.Options = []Option{
			{Value: string(ActionIndoor), Label: "Indoor"},
			{Value: string(ActionOutdoor), Label: "Outdoor"},
			backOption,
		}
	case SubstepResults:
		renderResults(r, results)
	default:
		r.Message = "Do you prefer: 1. casual activities (Hangouts) or 2. more formal (Workshops, Courses, Projects)?"
		r.Options = []Option{
			{Value: string(ActionCasual), Label: "Casual activities (Hangouts)"},
			{Value: string(ActionFormal), Label: "More formal (Workshops, Courses, Projects)"},
			backOption,
		}
	}
}

func renderResults(r *Reply, results *Results) {
	r.Options = []Option{backOption}
	if results == nil || len(results.Activities) == 0 {
		r.Message = "No matching activities found."
	} else {
		r.Message = "Recommended activities:"
		for _, a := range results.Activities {
			r.Links = append(r.Links, Link{Label: a.Name, URL: a.Link()})
		}
	}
	if results != nil && results.Advisory != "" {
		r.Message += "\n" + results.Advisory
	}
}

func yesNoBack() []Option {
	return []Option{
		{Value: string(ActionYes), Label: "Yes"},
		{Value: string(ActionNo), Label: "No"},
		backOption,
	}
}
