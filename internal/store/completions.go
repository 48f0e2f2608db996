package store

import (
	"context"
	"fmt"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
)

// MarkFiveMinFun records the kid's completion of a five-minute fun on date.
// It reports false when the same completion already exists.
func (s *Store) MarkFiveMinFun(ctx context.Context, kidID, activityID int64, date, at time.Time) (bool, error) {
	res, err := s.exec(ctx,
		`INSERT INTO five_min_fun_completions (kid_id, five_min_fun_id, completed_on, created_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		kidID, activityID, date.Format(model.DateLayout), at.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to record five-minute fun completion: %w", err)
	}
	return affected(res)
}

// MarkEvent records the kid's completion of an event on date. It reports
// false when the same completion already exists.
func (s *Store) MarkEvent(ctx context.Context, kidID, eventID int64, date, at time.Time) (bool, error) {
	res, err := s.exec(ctx,
		`INSERT INTO event_completions (kid_id, event_id, completed_on, created_at)
		 VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		kidID, eventID, date.Format(model.DateLayout), at.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to record event completion: %w", err)
	}
	return affected(res)
}

// MarkRoutineInstance records the completion of a routine instance and
// flags the instance completed. It reports false when it was already recorded.
func (s *Store) MarkRoutineInstance(ctx context.Context, ri model.RoutineInstance, date time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO routine_completions (kid_id, routine_instance_id, completed_on)
		 VALUES (?, ?, ?) ON CONFLICT DO NOTHING`),
		ri.KidID, ri.ID, date.Format(model.DateLayout))
	if err != nil {
		return false, fmt.Errorf("failed to record routine completion: %w", err)
	}
	created, err := affected(res)
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE routine_instances SET completed = ? WHERE id = ?`), true, ri.ID); err != nil {
		return false, fmt.Errorf("failed to flag routine instance %d: %w", ri.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit routine completion: %w", err)
	}
	return created, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func affected(res rowsAffecter) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
