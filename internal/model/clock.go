package model

import (
	"fmt"
	"strings"
	"time"
)

// Wall-clock layouts accepted from datetime-local inputs.
var wallClockLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseWallClock interprets a local date-time without offset in loc.
func ParseWallClock(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time value %q", value)
}

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Today returns midnight of the current date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// AgeOn returns the age in whole years reached on the given day.
func AgeOn(birthday, day time.Time) int {
	years := day.Year() - birthday.Year()
	if day.Month() < birthday.Month() || (day.Month() == birthday.Month() && day.Day() < birthday.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// AgeBand maps an age in whole years to its named band.
func AgeBand(age int) AgeGroup {
	switch {
	case age <= 3:
		return AgeToddler
	case age <= 10:
		return AgeChild
	default:
		return AgeTeen
	}
}
