package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/internal/store"
)

type fakeStore struct {
	mu sync.Mutex

	households    map[int64]*model.Household
	activities    map[int64]model.Activity
	course        *model.Course
	formats       []model.FormatType
	registrations map[[2]int64]bool
	suggestions   []model.RoutineSuggestion
	instances     map[int64]model.RoutineInstance
	completions   map[string]bool

	catalogCalls int
	failCatalog  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		households:    make(map[int64]*model.Household),
		activities:    make(map[int64]model.Activity),
		registrations: make(map[[2]int64]bool),
		instances:     make(map[int64]model.RoutineInstance),
		completions:   make(map[string]bool),
	}
}

func (f *fakeStore) Household(ctx context.Context, accountID int64) (*model.Household, error) {
	h, ok := f.households[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return h, nil
}

func (f *fakeStore) ActiveEvents(ctx context.Context) ([]model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogCalls++
	if f.failCatalog != nil {
		return nil, f.failCatalog
	}
	var out []model.Activity
	for id := int64(1); id < 100; id++ {
		if a, ok := f.activities[id]; ok && a.Kind == model.KindEvent && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) RegisteredFormats(ctx context.Context, kidIDs []int64) ([]model.FormatType, error) {
	return f.formats, nil
}

func (f *fakeStore) ActiveCourse(ctx context.Context) (*model.Course, error) {
	return f.course, nil
}

func (f *fakeStore) CompletedFiveMinFuns(ctx context.Context, kidID int64, activityIDs []int64) (map[int64]bool, error) {
	done := make(map[int64]bool)
	for _, id := range activityIDs {
		prefix := fmt.Sprintf("fun/%d/%d/", kidID, id)
		for key := range f.completions {
			if strings.HasPrefix(key, prefix) {
				done[id] = true
			}
		}
	}
	return done, nil
}

func (f *fakeStore) RoutineSuggestions(ctx context.Context, kidIDs []int64, limit int) ([]model.RoutineSuggestion, error) {
	if len(f.suggestions) > limit {
		return f.suggestions[:limit], nil
	}
	return f.suggestions, nil
}

func (f *fakeStore) OpenRoutineInstances(ctx context.Context, kidID int64, date time.Time) ([]model.RoutineInstance, error) {
	var out []model.RoutineInstance
	for id := int64(1); id < 100; id++ {
		ri, ok := f.instances[id]
		if ok && ri.KidID == kidID && !ri.Completed && ri.Date.Format(model.DateLayout) == date.Format(model.DateLayout) {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (f *fakeStore) Activity(ctx context.Context, id int64) (*model.Activity, error) {
	a, ok := f.activities[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (f *fakeStore) IsRegistered(ctx context.Context, eventID, kidID int64) (bool, error) {
	return f.registrations[[2]int64{eventID, kidID}], nil
}

func (f *fakeStore) mark(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completions[key] {
		return false
	}
	f.completions[key] = true
	return true
}

func (f *fakeStore) MarkFiveMinFun(ctx context.Context, kidID, activityID int64, date, at time.Time) (bool, error) {
	return f.mark(fmt.Sprintf("fun/%d/%d/%s", kidID, activityID, date.Format(model.DateLayout))), nil
}

func (f *fakeStore) MarkEvent(ctx context.Context, kidID, eventID int64, date, at time.Time) (bool, error) {
	return f.mark(fmt.Sprintf("event/%d/%d/%s", kidID, eventID, date.Format(model.DateLayout))), nil
}

func (f *fakeStore) RoutineInstance(ctx context.Context, id int64) (*model.RoutineInstance, error) {
	ri, ok := f.instances[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &ri, nil
}

func (f *fakeStore) MarkRoutineInstance(ctx context.Context, ri model.RoutineInstance, date time.Time) (bool, error) {
	created := f.mark(fmt.Sprintf("routine/%d/%d", ri.KidID, ri.ID))
	ri.Completed = true
	f.instances[ri.ID] = ri
	return created, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*model.DomainEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event *model.DomainEvent) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return uint64(len(p.events)), nil
}

type fakeAdvisor struct {
	adverse bool
	calls   int
}

func (a *fakeAdvisor) Adverse(ctx context.Context, at model.Coordinates, target time.Time, future bool) bool {
	a.calls++
	return a.adverse
}

// fixtureNow is a Saturday afternoon in UTC.
var fixtureNow = time.Date(2026, 6, 6, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }

func fixtureStore() *fakeStore {
	f := newFakeStore()
	f.households[1] = &model.Household{
		Account: &model.Account{
			ID: 1, Email: "sam@example.com", Role: model.RoleCaregiver,
			Coordinates: &model.Coordinates{Latitude: 40.7, Longitude: -74},
		},
		Caregivers: []model.Caregiver{{ID: 10, AccountID: 1, FirstName: "Alex"}},
		Kids: []model.Kid{
			{ID: 20, AccountID: 1, FirstName: "Mia", Birthday: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 21, AccountID: 1, FirstName: "Leo", Birthday: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	f.households[2] = &model.Household{
		Account: &model.Account{ID: 2, Email: "vendor@example.com", Role: model.RoleVendor},
	}

	start := fixtureNow.Add(2 * time.Hour)
	event := func(id int64, name string, format model.FormatType, place model.Place) model.Activity {
		return model.Activity{
			ID: id, Kind: model.KindEvent, Name: name, Slug: fmt.Sprintf("event-%d", id),
			FormatType: format, Place: place, AgeGroups: []model.AgeGroup{model.AgeChild},
			StartTime: ptrTime(start), EndTime: ptrTime(start.Add(time.Hour)), IsActive: true,
		}
	}
	f.activities[1] = event(1, "Park Hangout", model.FormatHangout, model.PlaceOutdoor)
	f.activities[2] = event(2, "Board Game Hangout", model.FormatHangout, model.PlaceIndoor)
	f.activities[3] = event(3, "Robotics Workshop", model.FormatWorkshop, model.PlaceIndoor)
	f.activities[4] = model.Activity{ID: 4, Kind: model.KindEvent, Name: "Quick Play", FormatType: model.FormatShortPlay, IsActive: true}
	f.activities[101] = model.Activity{ID: 101, Kind: model.KindFiveMinFun, Name: "Belly Breathing", Slug: "belly-breathing", IsActive: true}
	f.activities[102] = model.Activity{ID: 102, Kind: model.KindFiveMinFun, Name: "Gratitude Circle", Slug: "gratitude-circle", IsActive: true}

	fun101, fun102 := f.activities[101], f.activities[102]
	f.course = &model.Course{ID: 1, Name: "Foundation", IsActive: true, Levels: []model.Level{{
		ID: 1, Number: 1, Points: []model.Point{
			{ID: 11, Position: 1, Activity: &fun101},
			{ID: 12, Position: 2, Activity: &fun102},
		},
	}}}
	return f
}
