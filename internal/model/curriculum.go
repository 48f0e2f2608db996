package model

import (
	"sort"
	"time"
)

// Course is an ordered onboarding path.
type Course struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	IsActive    bool    `json:"is_active"`
	Levels      []Level `json:"levels,omitempty"`
}

// Level groups ordered points within a course.
type Level struct {
	ID     int64   `json:"id"`
	Number int     `json:"number"`
	Points []Point `json:"points,omitempty"`
}

// Point is a position within a level, optionally linked to a five-minute fun.
type Point struct {
	ID          int64     `json:"id"`
	LevelNumber int       `json:"level_number"`
	Position    int       `json:"position"`
	Activity    *Activity `json:"activity,omitempty"`
}

// OrderedPoints flattens all levels into (levelNumber, position) order.
func (c *Course) OrderedPoints() []Point {
	if c == nil {
		return nil
	}
	var points []Point
	for _, level := range c.Levels {
		for _, p := range level.Points {
			p.LevelNumber = level.Number
			points = append(points, p)
		}
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].LevelNumber != points[j].LevelNumber {
			return points[i].LevelNumber < points[j].LevelNumber
		}
		return points[i].Position < points[j].Position
	})
	return points
}

// Point finds a point of the course by id.
func (c *Course) Point(id int64) (Point, bool) {
	for _, p := range c.OrderedPoints() {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}

// RoutineInstance is one scheduled occurrence of an assigned routine for a kid.
type RoutineInstance struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	KidID        int64     `json:"kid_id"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	Completed    bool      `json:"completed"`
}

// RoutineSuggestion is a routine ranked by completed linked activities.
type RoutineSuggestion struct {
	Routine        Activity `json:"routine"`
	CompletedCount int      `json:"completed_count"`
}

// RoutineAssignment schedules a routine, or a single five-minute fun, for a kid.
type RoutineAssignment struct {
	ID           int64  `json:"id"`
	KidID        int64  `json:"kid_id"`
	RoutineID    *int64 `json:"routine_id,omitempty"`
	FiveMinFunID *int64 `json:"five_min_fun_id,omitempty"`
	Frequency    string `json:"frequency"`
	Day          string `json:"day,omitempty"`
}
