package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
)

const activityColumns = `id, kind, name, slug, description, instructions, format_type, place, start_time, end_time, is_active`

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (model.Activity, error) {
	var a model.Activity
	var kind, format, place string
	var start, end sql.NullInt64
	err := row.Scan(&a.ID, &kind, &a.Name, &a.Slug, &a.Description, &a.Instructions,
		&format, &place, &start, &end, &a.IsActive)
	if err != nil {
		return a, err
	}
	a.Kind = model.Kind(kind)
	a.FormatType = model.FormatType(format)
	a.Place = model.Place(place)
	a.StartTime = fromNullUnix(start)
	a.EndTime = fromNullUnix(end)
	return a, nil
}

// ActiveEvents returns every active scheduled event, latest start first, with
// age groups attached.
func (s *Store) ActiveEvents(ctx context.Context) ([]model.Activity, error) {
	rows, err := s.query(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE kind = ? AND is_active = ? ORDER BY start_time DESC, id`,
		string(model.KindEvent), true)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	if err := s.attachAgeGroups(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Activity loads one catalog item of any kind.
func (s *Store) Activity(ctx context.Context, id int64) (*model.Activity, error) {
	a, err := scanActivity(s.queryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load activity %d: %w", id, err)
	}
	list := []model.Activity{a}
	if err := s.attachAgeGroups(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) attachAgeGroups(ctx context.Context, activities []model.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	index := make(map[int64]int, len(activities))
	ids := make([]int64, 0, len(activities))
	for i, a := range activities {
		index[a.ID] = i
		ids = append(ids, a.ID)
	}

	marks, args := inClause(ids)
	rows, err := s.query(ctx,
		`SELECT activity_id, age_group FROM activity_age_groups WHERE activity_id IN (`+marks+`) ORDER BY activity_id, age_group`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to query age groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var group string
		if err := rows.Scan(&id, &group); err != nil {
			return fmt.Errorf("failed to scan age group: %w", err)
		}
		i := index[id]
		activities[i].AgeGroups = append(activities[i].AgeGroups, model.AgeGroup(group))
	}
	return rows.Err()
}

// RegisteredFormats lists the format of each registration of the kids,
// oldest registration first.
func (s *Store) RegisteredFormats(ctx context.Context, kidIDs []int64) ([]model.FormatType, error) {
	if len(kidIDs) == 0 {
		return nil, nil
	}
	marks, args := inClause(kidIDs)
	rows, err := s.query(ctx,
		`SELECT a.format_type FROM event_registrations r
		 JOIN activities a ON a.id = r.event_id
		 WHERE r.kid_id IN (`+marks+`)
		 ORDER BY r.registered_at, r.id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	var formats []model.FormatType
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		formats = append(formats, model.FormatType(f))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return formats, nil
}

// IsRegistered reports whether the kid holds a registration for the event.
func (s *Store) IsRegistered(ctx context.Context, eventID, kidID int64) (bool, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND kid_id = ?`, eventID, kidID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return n > 0, nil
}

// InsertActivity stores a catalog item and its age groups.
func (s *Store) InsertActivity(ctx context.Context, a model.Activity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO activities (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, string(a.Kind), a.Name, a.Slug, a.Description, a.Instructions,
		string(a.FormatType), string(a.Place), nullUnix(a.StartTime), nullUnix(a.EndTime), a.IsActive)
	if err != nil {
		return fmt.Errorf("failed to insert activity %d: %w", a.ID, err)
	}
	for _, g := range a.AgeGroups {
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO activity_age_groups (activity_id, age_group) VALUES (?, ?) ON CONFLICT DO NOTHING`),
			a.ID, string(g))
		if err != nil {
			return fmt.Errorf("failed to insert age group for activity %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// InsertRegistration records that a kid registered for an event.
func (s *Store) InsertRegistration(ctx context.Context, id, eventID, kidID int64, at time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO event_registrations (id, event_id, kid_id, registered_at) VALUES (?, ?, ?, ?)`,
		id, eventID, kidID, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert registration %d: %w", id, err)
	}
	return nil
}
