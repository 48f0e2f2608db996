package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/internal/store"
	"github.com/klamlamwork/playroom/pkg/logger"
	"github.com/klamlamwork/playroom/pkg/metrics"
)

// CompletionStore records completions.
type CompletionStore interface {
	Directory
	Activity(ctx context.Context, id int64) (*model.Activity, error)
	IsRegistered(ctx context.Context, eventID, kidID int64) (bool, error)
	MarkFiveMinFun(ctx context.Context, kidID, activityID int64, date, at time.Time) (bool, error)
	MarkEvent(ctx context.Context, kidID, eventID int64, date, at time.Time) (bool, error)
	RoutineInstance(ctx context.Context, id int64) (*model.RoutineInstance, error)
	MarkRoutineInstance(ctx context.Context, ri model.RoutineInstance, date time.Time) (bool, error)
}

// CompletionService marks activities completed for a caregiver's kids.
type CompletionService struct {
	store     CompletionStore
	publisher Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewCompletionService creates a new completion service.
func NewCompletionService(st CompletionStore, publisher Publisher, log *logger.Logger) *CompletionService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CompletionService{store: st, publisher: publisher, logger: log, now: time.Now}
}

// MarkFiveMinFun records today's completion of a five-minute fun for each kid.
func (s *CompletionService) MarkFiveMinFun(ctx context.Context, accountID int64, req *model.MarkFiveMinFunRequest) (*model.CompletionResult, error) {
	h, kids, err := s.caller(ctx, accountID, req.KidIDs)
	if err != nil {
		return nil, err
	}
	fun, err := s.activity(ctx, req.ActivityID, model.KindFiveMinFun)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := model.Today(now, h.Account.Location())
	res := &model.CompletionResult{}
	for _, kid := range kids {
		created, err := s.store.MarkFiveMinFun(ctx, kid.ID, fun.ID, today, now)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
		} else {
			res.AlreadyCompleted = append(res.AlreadyCompleted, kid.FirstName)
		}
	}

	if res.Created > 0 {
		res.Success = true
		res.Message = fmt.Sprintf("Marked as completed for %d kid(s)!", res.Created)
		if len(res.AlreadyCompleted) > 0 {
			res.Message += fmt.Sprintf(" Skipped %s (already completed).", strings.Join(res.AlreadyCompleted, ", "))
		}
	} else {
		res.Error = "Already completed today for selected kids."
		if len(res.AlreadyCompleted) > 0 {
			res.Error += fmt.Sprintf(" (%s)", strings.Join(res.AlreadyCompleted, ", "))
		}
	}

	s.finish(ctx, accountID, model.CompletionFiveMinFun, res, map[string]any{"activity_id": fun.ID})
	return res, nil
}

// MarkEvent records an event completion on the requested date (today by
// default). Kids need a registration unless the event is a short play.
func (s *CompletionService) MarkEvent(ctx context.Context, accountID int64, req *model.MarkEventRequest) (*model.CompletionResult, error) {
	h, kids, err := s.caller(ctx, accountID, req.KidIDs)
	if err != nil {
		return nil, err
	}
	event, err := s.activity(ctx, req.EventID, model.KindEvent)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := model.Today(now, h.Account.Location())
	if req.Date != "" {
		date, err = time.Parse(model.DateLayout, req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
		}
	}

	res := &model.CompletionResult{}
	for _, kid := range kids {
		if event.FormatType != model.FormatShortPlay {
			registered, err := s.store.IsRegistered(ctx, event.ID, kid.ID)
			if err != nil {
				return nil, err
			}
			if !registered {
				res.NotRegistered = append(res.NotRegistered, kid.FirstName)
				continue
			}
		}
		created, err := s.store.MarkEvent(ctx, kid.ID, event.ID, date, now)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
		} else {
			res.AlreadyCompleted = append(res.AlreadyCompleted, kid.FirstName)
		}
	}

	if res.Created > 0 {
		res.Success = true
		res.Message = fmt.Sprintf("Marked as completed for %d kid(s)!", res.Created)
		if len(res.AlreadyCompleted) > 0 {
			res.Message += " Skipped already completed: " + strings.Join(res.AlreadyCompleted, ", ")
		}
		if len(res.NotRegistered) > 0 {
			res.Message += " Skipped not registered: " + strings.Join(res.NotRegistered, ", ")
		}
	} else {
		var parts []string
		if len(res.AlreadyCompleted) > 0 {
			parts = append(parts, fmt.Sprintf("Already completed: %s.", strings.Join(res.AlreadyCompleted, ", ")))
		}
		if len(res.NotRegistered) > 0 {
			parts = append(parts, fmt.Sprintf("Not registered: %s.", strings.Join(res.NotRegistered, ", ")))
		}
		res.Error = strings.Join(parts, " ")
	}

	s.finish(ctx, accountID, model.CompletionEvent, res, map[string]any{
		"event_id": event.ID,
		"date":     date.Format(model.DateLayout),
	})
	return res, nil
}

// MarkRoutineInstance records the completion of one routine instance.
func (s *CompletionService) MarkRoutineInstance(ctx context.Context, accountID int64, req *model.MarkRoutineInstanceRequest) (*model.CompletionResult, error) {
	h, err := s.household(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if req.RoutineInstanceID <= 0 {
		return nil, fmt.Errorf("%w: routine_instance_id is required", ErrInvalidRequest)
	}

	ri, err := s.store.RoutineInstance(ctx, req.RoutineInstanceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	kid, ok := h.Kid(ri.KidID)
	if !ok {
		return nil, ErrNotFound
	}

	res := &model.CompletionResult{}
	if ri.Completed {
		res.AlreadyCompleted = []string{kid.FirstName}
	} else {
		created, err := s.store.MarkRoutineInstance(ctx, *ri, model.Today(s.now(), h.Account.Location()))
		if err != nil {
			return nil, err
		}
		if created {
			res.Created = 1
		} else {
			res.AlreadyCompleted = []string{kid.FirstName}
		}
	}

	if res.Created > 0 {
		res.Success = true
	} else {
		res.Error = "Already completed."
	}

	s.finish(ctx, accountID, model.CompletionRoutineInstance, res, map[string]any{"routine_instance_id": ri.ID})
	return res, nil
}

func (s *CompletionService) household(ctx context.Context, accountID int64) (*model.Household, error) {
	h, err := s.store.Household(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load household: %w", err)
	}
	if h.Account == nil {
		return nil, ErrProfileMissing
	}
	if h.Account.Role != model.RoleCaregiver {
		return nil, ErrUnauthorized
	}
	return h, nil
}

// caller loads the household and resolves kidIDs against it. Every id must
// belong to the account.
func (s *CompletionService) caller(ctx context.Context, accountID int64, kidIDs []int64) (*model.Household, []model.Kid, error) {
	h, err := s.household(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if len(kidIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: no kids selected", ErrInvalidRequest)
	}

	seen := make(map[int64]bool, len(kidIDs))
	kids := make([]model.Kid, 0, len(kidIDs))
	for _, id := range kidIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		kid, ok := h.Kid(id)
		if !ok {
			return nil, nil, ErrNotFound
		}
		kids = append(kids, kid)
	}
	return h, kids, nil
}

func (s *CompletionService) activity(ctx context.Context, id int64, kind model.Kind) (*model.Activity, error) {
	a, err := s.store.Activity(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Kind != kind {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *CompletionService) finish(ctx context.Context, accountID int64, kind model.CompletionKind, res *model.CompletionResult, metadata map[string]any) {
	result := "created"
	switch {
	case res.Created == 0 && len(res.NotRegistered) > 0 && len(res.AlreadyCompleted) == 0:
		result = "not_registered"
	case res.Created == 0:
		result = "already_completed"
	}
	metrics.RecordCompletion(string(kind), result)

	if res.Created == 0 {
		return
	}
	metadata["created"] = res.Created
	publish(ctx, s.publisher, s.logger, model.EventTypeCompletion, string(kind), accountID, metadata)
}
