package model

import (
	"strconv"
	"time"
)

// Kind distinguishes the catalog item families.
type Kind string

const (
	KindEvent      Kind = "event"
	KindFiveMinFun Kind = "five_min_fun"
	KindRoutine    Kind = "routine"
)

// FormatType is the structural category of an activity.
type FormatType string

const (
	FormatHangout   FormatType = "hangout"
	FormatProject   FormatType = "project"
	FormatCourse    FormatType = "course"
	FormatWorkshop  FormatType = "workshop"
	FormatContest   FormatType = "contest"
	FormatOthers    FormatType = "others"
	FormatShortPlay FormatType = "5-min-play"
)

// Place is where an activity happens.
type Place string

const (
	PlaceIndoor  Place = "indoor"
	PlaceOutdoor Place = "outdoor"
)

// AgeGroup is a named age band.
type AgeGroup string

const (
	AgeToddler AgeGroup = "0-3"
	AgeChild   AgeGroup = "3-10"
	AgeTeen    AgeGroup = "11+"
)

// Activity is a catalog item: an Event, a FiveMinFun or a Routine.
type Activity struct {
	ID           int64      `json:"id"`
	Kind         Kind       `json:"kind"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug,omitempty"`
	Description  string     `json:"description,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	FormatType   FormatType `json:"format_type"`
	Place        Place      `json:"place"`
	AgeGroups    []AgeGroup `json:"age_groups,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	IsActive     bool       `json:"is_active"`
}

// SlugOrID returns the slug, or the numeric id when the slug is empty.
func (a *Activity) SlugOrID() string {
	if a.Slug != "" {
		return a.Slug
	}
	return strconv.FormatInt(a.ID, 10)
}

// Link is the deep link to the activity's detail page.
func (a *Activity) Link() string {
	switch a.Kind {
	case KindFiveMinFun:
		return "/events/five-min-fun/" + a.SlugOrID()
	case KindRoutine:
		return "/events/routine/" + a.SlugOrID() + "/"
	default:
		return "/events/" + a.SlugOrID()
	}
}

// HasAgeGroup reports whether the activity targets any of the given bands.
func (a *Activity) HasAgeGroup(groups map[AgeGroup]bool) bool {
	for _, g := range a.AgeGroups {
		if groups[g] {
			return true
		}
	}
	return false
}
