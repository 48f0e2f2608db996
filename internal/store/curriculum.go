package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
)

// ActiveCourse loads the first active course with its levels and points.
// It returns nil when no course is active.
func (s *Store) ActiveCourse(ctx context.Context) (*model.Course, error) {
	var c model.Course
	err := s.queryRow(ctx,
		`SELECT id, name, description, is_active FROM courses WHERE is_active = ? ORDER BY id LIMIT 1`, true,
	).Scan(&c.ID, &c.Name, &c.Description, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active course: %w", err)
	}

	rows, err := s.query(ctx,
		`SELECT l.id, l.number, p.id, p.position, `+prefixed("a")+`
		 FROM course_levels l
		 LEFT JOIN course_points p ON p.level_id = l.id
		 LEFT JOIN activities a ON a.id = p.five_min_fun_id
		 WHERE l.course_id = ?
		 ORDER BY l.number, l.id, p.position, p.id`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query course levels: %w", err)
	}
	defer rows.Close()

	levelIndex := make(map[int64]int)
	for rows.Next() {
		var levelID int64
		var number int
		var pointID, position sql.NullInt64
		var fun nullableActivity
		dest := append([]any{&levelID, &number, &pointID, &position}, fun.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan course point: %w", err)
		}

		i, ok := levelIndex[levelID]
		if !ok {
			c.Levels = append(c.Levels, model.Level{ID: levelID, Number: number})
			i = len(c.Levels) - 1
			levelIndex[levelID] = i
		}
		if !pointID.Valid {
			continue
		}
		c.Levels[i].Points = append(c.Levels[i].Points, model.Point{
			ID:          pointID.Int64,
			LevelNumber: number,
			Position:    int(position.Int64),
			Activity:    fun.activity(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate course points: %w", err)
	}
	return &c, nil
}

// CompletedFiveMinFuns reports which of activityIDs the kid ever completed.
func (s *Store) CompletedFiveMinFuns(ctx context.Context, kidID int64, activityIDs []int64) (map[int64]bool, error) {
	done := make(map[int64]bool)
	if len(activityIDs) == 0 {
		return done, nil
	}
	marks, args := inClause(activityIDs)
	rows, err := s.query(ctx,
		`SELECT DISTINCT five_min_fun_id FROM five_min_fun_completions
		 WHERE kid_id = ? AND five_min_fun_id IN (`+marks+`)`,
		append([]any{kidID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		done[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completions: %w", err)
	}
	return done, nil
}

// InsertCourse stores a course with its levels and points.
func (s *Store) InsertCourse(ctx context.Context, c model.Course) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO courses (id, name, description, is_active) VALUES (?, ?, ?, ?)`),
		c.ID, c.Name, c.Description, c.IsActive); err != nil {
		return fmt.Errorf("failed to insert course %d: %w", c.ID, err)
	}
	for _, l := range c.Levels {
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO course_levels (id, course_id, number) VALUES (?, ?, ?)`),
			l.ID, c.ID, l.Number); err != nil {
			return fmt.Errorf("failed to insert level %d: %w", l.ID, err)
		}
		for _, p := range l.Points {
			var funID *int64
			if p.Activity != nil {
				funID = &p.Activity.ID
			}
			if _, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO course_points (id, level_id, position, five_min_fun_id) VALUES (?, ?, ?, ?)`),
				p.ID, l.ID, p.Position, nullID(funID)); err != nil {
				return fmt.Errorf("failed to insert point %d: %w", p.ID, err)
			}
		}
	}
	return tx.Commit()
}

// RoutineSuggestions ranks active routines linked to five-minute funs the
// kids completed by how many of those links are completed. Routines already
// scheduled for any of the kids are left out.
func (s *Store) RoutineSuggestions(ctx context.Context, kidIDs []int64, limit int) ([]model.RoutineSuggestion, error) {
	if len(kidIDs) == 0 {
		return nil, nil
	}
	marks, kidArgs := inClause(kidIDs)
	args := []any{string(model.KindRoutine), true}
	args = append(args, kidArgs...)
	args = append(args, kidArgs...)
	args = append(args, limit)

	rows, err := s.query(ctx,
		`SELECT `+prefixed("a")+`, COUNT(DISTINCT l.five_min_fun_id) AS completed_count
		 FROM activities a
		 JOIN routine_links l ON l.routine_id = a.id
		 WHERE a.kind = ? AND a.is_active = ?
		   AND l.five_min_fun_id IN (SELECT c.five_min_fun_id FROM five_min_fun_completions c WHERE c.kid_id IN (`+marks+`))
		   AND a.id NOT IN (
		     SELECT ra.routine_id FROM routine_instances ri
		     JOIN routine_assignments ra ON ra.id = ri.assignment_id
		     WHERE ri.kid_id IN (`+marks+`) AND ra.routine_id IS NOT NULL)
		 GROUP BY `+prefixed("a")+`
		 ORDER BY completed_count DESC, a.id
		 LIMIT ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine suggestions: %w", err)
	}
	defer rows.Close()

	var out []model.RoutineSuggestion
	for rows.Next() {
		var fun nullableActivity
		var count int
		if err := rows.Scan(append(fun.dest(), &count)...); err != nil {
			return nil, fmt.Errorf("failed to scan routine suggestion: %w", err)
		}
		out = append(out, model.RoutineSuggestion{Routine: *fun.activity(), CompletedCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routine suggestions: %w", err)
	}
	return out, nil
}

const routineInstanceQuery = `SELECT ri.id, ri.assignment_id, ri.kid_id, ri.date, ri.completed, COALESCE(r.name, f.name, '')
	FROM routine_instances ri
	JOIN routine_assignments ra ON ra.id = ri.assignment_id
	LEFT JOIN activities r ON r.id = ra.routine_id
	LEFT JOIN activities f ON f.id = ra.five_min_fun_id`

func scanRoutineInstance(row scanner) (model.RoutineInstance, error) {
	var ri model.RoutineInstance
	var date string
	if err := row.Scan(&ri.ID, &ri.AssignmentID, &ri.KidID, &date, &ri.Completed, &ri.Name); err != nil {
		return ri, err
	}
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return ri, fmt.Errorf("invalid routine instance date %q: %w", date, err)
	}
	ri.Date = d
	return ri, nil
}

// OpenRoutineInstances lists the kid's routine instances on date that are
// neither flagged nor recorded as completed.
func (s *Store) OpenRoutineInstances(ctx context.Context, kidID int64, date time.Time) ([]model.RoutineInstance, error) {
	rows, err := s.query(ctx,
		routineInstanceQuery+`
		 WHERE ri.kid_id = ? AND ri.date = ? AND ri.completed = ?
		   AND NOT EXISTS (SELECT 1 FROM routine_completions rc WHERE rc.routine_instance_id = ri.id)
		 ORDER BY ri.id`,
		kidID, date.Format(model.DateLayout), false)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine instances: %w", err)
	}
	defer rows.Close()

	var out []model.RoutineInstance
	for rows.Next() {
		ri, err := scanRoutineInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routine instance: %w", err)
		}
		out = append(out, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routine instances: %w", err)
	}
	return out, nil
}

// RoutineInstance loads one routine instance.
func (s *Store) RoutineInstance(ctx context.Context, id int64) (*model.RoutineInstance, error) {
	ri, err := scanRoutineInstance(s.queryRow(ctx, routineInstanceQuery+` WHERE ri.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load routine instance %d: %w", id, err)
	}
	return &ri, nil
}

// InsertRoutineLink links a five-minute fun to a routine.
func (s *Store) InsertRoutineLink(ctx context.Context, routineID, funID int64) error {
	_, err := s.exec(ctx,
		`INSERT INTO routine_links (routine_id, five_min_fun_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		routineID, funID)
	if err != nil {
		return fmt.Errorf("failed to link routine %d: %w", routineID, err)
	}
	return nil
}

// InsertRoutineAssignment stores a routine assignment.
func (s *Store) InsertRoutineAssignment(ctx context.Context, a model.RoutineAssignment) error {
	frequency := a.Frequency
	if frequency == "" {
		frequency = "daily"
	}
	_, err := s.exec(ctx,
		`INSERT INTO routine_assignments (id, kid_id, routine_id, five_min_fun_id, frequency, day) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.KidID, nullID(a.RoutineID), nullID(a.FiveMinFunID), frequency, a.Day)
	if err != nil {
		return fmt.Errorf("failed to insert routine assignment %d: %w", a.ID, err)
	}
	return nil
}

// InsertRoutineInstance stores a scheduled routine occurrence.
func (s *Store) InsertRoutineInstance(ctx context.Context, ri model.RoutineInstance) error {
	_, err := s.exec(ctx,
		`INSERT INTO routine_instances (id, assignment_id, kid_id, date, completed) VALUES (?, ?, ?, ?, ?)`,
		ri.ID, ri.AssignmentID, ri.KidID, ri.Date.Format(model.DateLayout), ri.Completed)
	if err != nil {
		return fmt.Errorf("failed to insert routine instance %d: %w", ri.ID, err)
	}
	return nil
}

// prefixed returns the activity columns qualified with alias.
func prefixed(alias string) string {
	cols := strings.Split(activityColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// nullableActivity scans an activity from the nullable side of a LEFT JOIN.
type nullableActivity struct {
	id, start, end                               sql.NullInt64
	kind, name, slug, desc, instr, format, place sql.NullString
	active                                       sql.NullBool
}

func (n *nullableActivity) dest() []any {
	return []any{&n.id, &n.kind, &n.name, &n.slug, &n.desc, &n.instr,
		&n.format, &n.place, &n.start, &n.end, &n.active}
}

func (n *nullableActivity) activity() *model.Activity {
	if !n.id.Valid {
		return nil
	}
	return &model.Activity{
		ID:           n.id.Int64,
		Kind:         model.Kind(n.kind.String),
		Name:         n.name.String,
		Slug:         n.slug.String,
		Description:  n.desc.String,
		Instructions: n.instr.String,
		FormatType:   model.FormatType(n.format.String),
		Place:        model.Place(n.place.String),
		StartTime:    fromNullUnix(n.start),
		EndTime:      fromNullUnix(n.end),
		IsActive:     n.active.Bool,
	}
}
