// Package recommend filters and ranks catalog events against the preferences
// collected by the activity-finder conversation.
package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/internal/model"
)

// Advisor reports adverse weather at a location. Implementations fail open:
// any lookup problem reads as "not adverse".
type Advisor interface {
	Adverse(ctx context.Context, at model.Coordinates, target time.Time, future bool) bool
}

// Query is everything the ranking needs besides the catalog snapshot.
type Query struct {
	Format      dialogue.Format
	Window      *dialogue.TimeWindow
	Place       model.Place
	Location    *time.Location
	Coordinates *model.Coordinates
	Kids        []model.Kid
	// RegisteredFormats lists the format of every past registration of the
	// selected kids, oldest first.
	RegisteredFormats []model.FormatType
	Now               time.Time
}

// Result is the ranked list plus weather bookkeeping.
type Result struct {
	Activities     []model.Activity
	WeatherChecked bool
	Adverse        bool
}

// Engine runs candidate queries.
type Engine struct {
	advisor Advisor
}

// NewEngine creates an engine. A nil advisor disables the weather override.
func NewEngine(advisor Advisor) *Engine {
	return &Engine{advisor: advisor}
}

var formalFormats = map[model.FormatType]bool{
	model.FormatWorkshop: true,
	model.FormatCourse:   true,
	model.FormatProject:  true,
}

// Recommend filters catalog in order (base, format, time, place with weather
// override, age) and then ranks by the dominant past registration format.
// Relative catalog order is preserved within each rank.
func (e *Engine) Recommend(ctx context.Context, catalog []model.Activity, q Query) Result {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	events := filter(catalog, func(a model.Activity) bool {
		return a.IsActive && a.Kind == model.KindEvent
	})

	switch q.Format {
	case dialogue.FormatCasual:
		events = filter(events, func(a model.Activity) bool { return a.FormatType == model.FormatHangout })
	case dialogue.FormatFormal:
		events = filter(events, func(a model.Activity) bool { return formalFormats[a.FormatType] })
	}

	var windowStart time.Time
	if lower, upper, ok := windowBounds(q.Window, loc); ok {
		windowStart = lower
		events = filter(events, func(a model.Activity) bool {
			return a.StartTime != nil && a.EndTime != nil &&
				!a.StartTime.Before(lower) && !a.EndTime.After(upper)
		})
	}

	var res Result
	place := q.Place
	if place == model.PlaceOutdoor && q.Coordinates != nil && e.advisor != nil {
		target, future := now, false
		if !windowStart.IsZero() {
			target = windowStart
			future = windowStart.After(now)
		}
		res.WeatherChecked = true
		if e.advisor.Adverse(ctx, *q.Coordinates, target, future) {
			res.Adverse = true
			place = model.PlaceIndoor
		}
	}
	if place != "" {
		events = filter(events, func(a model.Activity) bool { return a.Place == place })
	}

	if bands := kidBands(q.Kids, model.Today(now, loc)); len(bands) > 0 {
		events = filter(events, func(a model.Activity) bool { return a.HasAgeGroup(bands) })
	}

	if dominant, ok := DominantFormat(q.RegisteredFormats); ok {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].FormatType == dominant && events[j].FormatType != dominant
		})
	}

	res.Activities = events
	return res
}

// DominantFormat returns the most frequent format; ties go to the one seen first.
func DominantFormat(formats []model.FormatType) (model.FormatType, bool) {
	counts := make(map[model.FormatType]int)
	var order []model.FormatType
	for _, f := range formats {
		if counts[f] == 0 {
			order = append(order, f)
		}
		counts[f]++
	}
	var best model.FormatType
	bestCount := 0
	for _, f := range order {
		if counts[f] > bestCount {
			best, bestCount = f, counts[f]
		}
	}
	return best, bestCount > 0
}

func kidBands(kids []model.Kid, today time.Time) map[model.AgeGroup]bool {
	bands := make(map[model.AgeGroup]bool)
	for _, k := range kids {
		bands[model.AgeBand(model.AgeOn(k.Birthday, today))] = true
	}
	return bands
}

func windowBounds(w *dialogue.TimeWindow, loc *time.Location) (time.Time, time.Time, bool) {
	if w == nil || w.Start == "" || w.End == "" {
		return time.Time{}, time.Time{}, false
	}
	lower, err := model.ParseWallClock(w.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	upper, err := model.ParseWallClock(w.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return lower.UTC(), upper.UTC(), true
}

func filter(in []model.Activity, keep func(model.Activity) bool) []model.Activity {
	out := make([]model.Activity, 0, len(in))
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
