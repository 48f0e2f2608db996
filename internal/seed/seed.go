// Package seed loads YAML fixtures into the store.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/klamlamwork/playroom/internal/model"
)

// Fixture is the document layout of a seed file.
type Fixture struct {
	Accounts         []Account         `yaml:"accounts"`
	Activities       []Activity        `yaml:"activities"`
	Registrations    []Registration    `yaml:"registrations"`
	Courses          []Course          `yaml:"courses"`
	RoutineLinks     []RoutineLink     `yaml:"routine_links"`
	Assignments      []Assignment      `yaml:"assignments"`
	RoutineInstances []RoutineInstance `yaml:"routine_instances"`
	Completions      []Completion      `yaml:"completions"`
}

type Account struct {
	ID          int64              `yaml:"id"`
	Email       string             `yaml:"email"`
	Role        string             `yaml:"role"`
	Timezone    string             `yaml:"timezone"`
	Coordinates *model.Coordinates `yaml:"coordinates"`
	Caregivers  []Caregiver        `yaml:"caregivers"`
	Kids        []Kid              `yaml:"kids"`
}

type Caregiver struct {
	ID        int64  `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

type Kid struct {
	ID        int64  `yaml:"id"`
	FirstName string `yaml:"first_name"`
	Birthday  string `yaml:"birthday"`
}

type Activity struct {
	ID           int64    `yaml:"id"`
	Kind         string   `yaml:"kind"`
	Name         string   `yaml:"name"`
	Slug         string   `yaml:"slug"`
	Description  string   `yaml:"description"`
	Instructions string   `yaml:"instructions"`
	Format       string   `yaml:"format"`
	Place        string   `yaml:"place"`
	AgeGroups    []string `yaml:"age_groups"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	// Active defaults to true.
	Active *bool `yaml:"active"`
}

type Registration struct {
	ID           int64  `yaml:"id"`
	EventID      int64  `yaml:"event_id"`
	KidID        int64  `yaml:"kid_id"`
	RegisteredAt string `yaml:"registered_at"`
}

type Course struct {
	ID          int64   `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Active      *bool   `yaml:"active"`
	Levels      []Level `yaml:"levels"`
}

type Level struct {
	ID     int64   `yaml:"id"`
	Number int     `yaml:"number"`
	Points []Point `yaml:"points"`
}

type Point struct {
	ID           int64  `yaml:"id"`
	Position     int    `yaml:"position"`
	FiveMinFunID *int64 `yaml:"five_min_fun_id"`
}

type RoutineLink struct {
	RoutineID     int64   `yaml:"routine_id"`
	FiveMinFunIDs []int64 `yaml:"five_min_fun_ids"`
}

type Assignment struct {
	ID           int64  `yaml:"id"`
	KidID        int64  `yaml:"kid_id"`
	RoutineID    *int64 `yaml:"routine_id"`
	FiveMinFunID *int64 `yaml:"five_min_fun_id"`
	Frequency    string `yaml:"frequency"`
	Day          string `yaml:"day"`
}

type RoutineInstance struct {
	ID           int64  `yaml:"id"`
	AssignmentID int64  `yaml:"assignment_id"`
	KidID        int64  `yaml:"kid_id"`
	Date         string `yaml:"date"`
	Completed    bool   `yaml:"completed"`
}

type Completion struct {
	KidID        int64  `yaml:"kid_id"`
	FiveMinFunID int64  `yaml:"five_min_fun_id"`
	Date         string `yaml:"date"`
}

// Sink receives decoded fixture rows.
type Sink interface {
	InsertAccount(ctx context.Context, a model.Account) error
	InsertCaregiver(ctx context.Context, c model.Caregiver) error
	InsertKid(ctx context.Context, k model.Kid) error
	InsertActivity(ctx context.Context, a model.Activity) error
	InsertRegistration(ctx context.Context, id, eventID, kidID int64, at time.Time) error
	InsertCourse(ctx context.Context, c model.Course) error
	InsertRoutineLink(ctx context.Context, routineID, funID int64) error
	InsertRoutineAssignment(ctx context.Context, a model.RoutineAssignment) error
	InsertRoutineInstance(ctx context.Context, ri model.RoutineInstance) error
	MarkFiveMinFun(ctx context.Context, kidID, activityID int64, date, at time.Time) (bool, error)
}

// Decode parses a fixture document.
func Decode(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return &f, nil
}

// LoadFile decodes the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

// Apply writes the fixture to sink in dependency order.
func Apply(ctx context.Context, sink Sink, f *Fixture) error {
	for _, a := range f.Accounts {
		if err := applyAccount(ctx, sink, a); err != nil {
			return err
		}
	}

	for _, a := range f.Activities {
		activity, err := a.model()
		if err != nil {
			return err
		}
		if err := sink.InsertActivity(ctx, activity); err != nil {
			return err
		}
	}

	for _, r := range f.Registrations {
		at, err := parseInstant(r.RegisteredAt)
		if err != nil {
			return fmt.Errorf("registration %d: %w", r.ID, err)
		}
		if err := sink.InsertRegistration(ctx, r.ID, r.EventID, r.KidID, at); err != nil {
			return err
		}
	}

	for _, c := range f.Courses {
		if err := sink.InsertCourse(ctx, c.model()); err != nil {
			return err
		}
	}

	for _, l := range f.RoutineLinks {
		for _, funID := range l.FiveMinFunIDs {
			if err := sink.InsertRoutineLink(ctx, l.RoutineID, funID); err != nil {
				return err
			}
		}
	}

	for _, a := range f.Assignments {
		err := sink.InsertRoutineAssignment(ctx, model.RoutineAssignment{
			ID:           a.ID,
			KidID:        a.KidID,
			RoutineID:    a.RoutineID,
			FiveMinFunID: a.FiveMinFunID,
			Frequency:    a.Frequency,
			Day:          a.Day,
		})
		if err != nil {
			return err
		}
	}

	for _, ri := range f.RoutineInstances {
		date, err := time.Parse(model.DateLayout, ri.Date)
		if err != nil {
			return fmt.Errorf("routine instance %d: invalid date: %w", ri.ID, err)
		}
		err = sink.InsertRoutineInstance(ctx, model.RoutineInstance{
			ID:           ri.ID,
			AssignmentID: ri.AssignmentID,
			KidID:        ri.KidID,
			Date:         date,
			Completed:    ri.Completed,
		})
		if err != nil {
			return err
		}
	}

	for _, c := range f.Completions {
		date, err := time.Parse(model.DateLayout, c.Date)
		if err != nil {
			return fmt.Errorf("completion for kid %d: invalid date: %w", c.KidID, err)
		}
		if _, err := sink.MarkFiveMinFun(ctx, c.KidID, c.FiveMinFunID, date, date); err != nil {
			return err
		}
	}

	return nil
}

func applyAccount(ctx context.Context, sink Sink, a Account) error {
	role := model.Role(a.Role)
	if role == "" {
		role = model.RoleCaregiver
	}
	err := sink.InsertAccount(ctx, model.Account{
		ID:           a.ID,
		Email:        a.Email,
		Role:         role,
		TimezoneName: a.Timezone,
		Coordinates:  a.Coordinates,
	})
	if err != nil {
		return err
	}
	for _, c := range a.Caregivers {
		err := sink.InsertCaregiver(ctx, model.Caregiver{
			ID: c.ID, AccountID: a.ID, FirstName: c.FirstName, LastName: c.LastName,
		})
		if err != nil {
			return err
		}
	}
	for _, k := range a.Kids {
		birthday, err := time.Parse(model.DateLayout, k.Birthday)
		if err != nil {
			return fmt.Errorf("kid %d: invalid birthday: %w", k.ID, err)
		}
		if err := sink.InsertKid(ctx, model.Kid{ID: k.ID, AccountID: a.ID, FirstName: k.FirstName, Birthday: birthday}); err != nil {
			return err
		}
	}
	return nil
}

func (a Activity) model() (model.Activity, error) {
	out := model.Activity{
		ID:           a.ID,
		Kind:         model.Kind(a.Kind),
		Name:         a.Name,
		Slug:         a.Slug,
		Description:  a.Description,
		Instructions: a.Instructions,
		FormatType:   model.FormatType(a.Format),
		Place:        model.Place(a.Place),
		IsActive:     a.Active == nil || *a.Active,
	}
	if out.Kind == "" {
		out.Kind = model.KindEvent
	}
	if out.FormatType == "" {
		out.FormatType = model.FormatWorkshop
	}
	if out.Place == "" {
		out.Place = model.PlaceIndoor
	}
	for _, g := range a.AgeGroups {
		out.AgeGroups = append(out.AgeGroups, model.AgeGroup(g))
	}
	if a.Start != "" {
		start, err := parseInstant(a.Start)
		if err != nil {
			return out, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		out.StartTime = &start
	}
	if a.End != "" {
		end, err := parseInstant(a.End)
		if err != nil {
			return out, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		out.EndTime = &end
	}
	return out, nil
}

func (c Course) model() model.Course {
	out := model.Course{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.Active == nil || *c.Active,
	}
	for _, l := range c.Levels {
		level := model.Level{ID: l.ID, Number: l.Number}
		for _, p := range l.Points {
			point := model.Point{ID: p.ID, Position: p.Position}
			if p.FiveMinFunID != nil {
				point.Activity = &model.Activity{ID: *p.FiveMinFunID}
			}
			level.Points = append(level.Points, point)
		}
		out.Levels = append(out.Levels, level)
	}
	return out
}

func parseInstant(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q: %w", v, err)
	}
	return t, nil
}
