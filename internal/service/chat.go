package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/internal/recommend"
	"github.com/klamlamwork/playroom/internal/session"
	"github.com/klamlamwork/playroom/internal/store"
	"github.com/klamlamwork/playroom/pkg/logger"
	"github.com/klamlamwork/playroom/pkg/metrics"
	"github.com/klamlamwork/playroom/pkg/tracing"
)

// Directory resolves an account to its household.
type Directory interface {
	Household(ctx context.Context, accountID int64) (*model.Household, error)
}

// Catalog provides the event catalog and registration history.
type Catalog interface {
	ActiveEvents(ctx context.Context) ([]model.Activity, error)
	RegisteredFormats(ctx context.Context, kidIDs []int64) ([]model.FormatType, error)
}

// CourseReader loads the active foundation course.
type CourseReader interface {
	ActiveCourse(ctx context.Context) (*model.Course, error)
}

// RoutineReader provides routine suggestions and scheduled instances.
type RoutineReader interface {
	RoutineSuggestions(ctx context.Context, kidIDs []int64, limit int) ([]model.RoutineSuggestion, error)
	OpenRoutineInstances(ctx context.Context, kidID int64, date time.Time) ([]model.RoutineInstance, error)
}

// ChatRequest is one call into the conversation.
type ChatRequest struct {
	// SessionID is empty for a new conversation.
	SessionID string
	// Reset discards stored state before applying Input.
	Reset bool
	// Input is nil when the caller only wants the current reply.
	Input *dialogue.Input
}

// ChatDeps are the collaborators of ChatService.
type ChatDeps struct {
	Directory Directory
	Catalog   Catalog
	Courses   CourseReader
	Routines  RoutineReader
	Sessions  session.Store
	Machine   *dialogue.Machine
	Engine    *recommend.Engine
	Publisher Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

// ChatService runs the activity-finder conversation.
type ChatService struct {
	directory Directory
	catalog   Catalog
	courses   CourseReader
	routines  RoutineReader
	sessions  session.Store
	machine   *dialogue.Machine
	engine    *recommend.Engine
	publisher Publisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(deps ChatDeps) *ChatService {
	s := &ChatService{
		directory: deps.Directory,
		catalog:   deps.Catalog,
		courses:   deps.Courses,
		routines:  deps.Routines,
		sessions:  deps.Sessions,
		machine:   deps.Machine,
		engine:    deps.Engine,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if s.machine == nil {
		s.machine = dialogue.NewMachine(nil)
	}
	if s.engine == nil {
		s.engine = recommend.NewEngine(nil)
	}
	if s.publisher == nil {
		s.publisher = NopPublisher{}
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Turn loads the caller's session, applies the input if any, renders the
// reply for the resulting state and saves it.
func (s *ChatService) Turn(ctx context.Context, accountID int64, req ChatRequest) (*dialogue.Reply, error) {
	ctx, span := tracing.Tracer("playroom/service").Start(ctx, "chat.turn")
	defer span.End()

	household, err := s.household(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.Must(uuid.NewV7()).String()
	}
	key, err := session.NewKey(accountID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session_id", ErrInvalidRequest)
	}
	sessionID = key.SessionID

	state, err := s.load(ctx, key, req.Reset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session load failed")
		return nil, err
	}

	var errText string
	if req.Input != nil {
		turn, err := s.machine.Apply(ctx, state, *req.Input, household)
		if err != nil {
			s.logger.Warn("journey lookup failed",
				zap.Int64("account_id", accountID),
				zap.Error(err),
			)
		}
		state, errText = turn.State, turn.Error
		metrics.RecordChatTurn(string(state.Step), string(state.Substep), errText == "")
	}

	view, err := s.view(ctx, state, household)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "view failed")
		return nil, err
	}
	view.Error = errText

	reply := dialogue.Render(state, view)
	reply.SessionID = sessionID

	if err := s.sessions.Save(ctx, key, state); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	span.SetAttributes(
		attribute.String("chat.step", string(state.Step)),
		attribute.String("chat.substep", string(state.Substep)),
	)

	if req.Input != nil && view.Results != nil {
		publish(ctx, s.publisher, s.logger, model.EventTypeRecommendation, "", accountID, map[string]any{
			"session_id":      sessionID,
			"result_count":    len(view.Results.Activities),
			"weather_advised": view.Results.Advisory != "",
			"prefer_format":   string(state.PreferFormat),
			"place":           string(state.Place),
		})
	}

	return &reply, nil
}

func (s *ChatService) household(ctx context.Context, accountID int64) (*model.Household, error) {
	household, err := s.directory.Household(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load household: %w", err)
	}
	if household.Account == nil {
		return nil, ErrProfileMissing
	}
	if household.Account.Role != model.RoleCaregiver {
		return nil, ErrUnauthorized
	}
	return household, nil
}

func (s *ChatService) load(ctx context.Context, key session.Key, reset bool) (dialogue.State, error) {
	if reset {
		if err := s.sessions.Delete(ctx, key); err != nil {
			return dialogue.State{}, fmt.Errorf("failed to reset session: %w", err)
		}
		return dialogue.Initial(), nil
	}
	state, err := s.sessions.Load(ctx, key)
	if errors.Is(err, session.ErrNotFound) {
		return dialogue.Initial(), nil
	}
	if err != nil {
		return dialogue.State{}, fmt.Errorf("failed to load session: %w", err)
	}
	if !state.Step.Valid() {
		return dialogue.Initial(), nil
	}
	return state, nil
}

// view loads what the render pass needs for state and nothing else.
func (s *ChatService) view(ctx context.Context, state dialogue.State, h *model.Household) (dialogue.View, error) {
	loc := h.Account.Location()
	v := dialogue.View{
		Household: h,
		Today:     model.Today(s.now(), loc),
	}

	switch state.Step {
	case dialogue.StepFoundationIntro, dialogue.StepNextUnfinished:
		course, err := s.courses.ActiveCourse(ctx)
		if err != nil {
			return v, fmt.Errorf("failed to load course: %w", err)
		}
		v.Course = course

	case dialogue.StepSetRoutines:
		if !state.HasKids() {
			break
		}
		suggestions, err := s.routines.RoutineSuggestions(ctx, state.KidIDs(), dialogue.MaxRoutineSuggestions)
		if err != nil {
			return v, fmt.Errorf("failed to load routine suggestions: %w", err)
		}
		v.RoutineSuggestions = suggestions

	case dialogue.StepSeeRoutines:
		for _, kid := range state.SelectedKids() {
			instances, err := s.routines.OpenRoutineInstances(ctx, kid.ID, v.Today)
			if err != nil {
				return v, fmt.Errorf("failed to load routines for kid %d: %w", kid.ID, err)
			}
			v.TodayRoutines = append(v.TodayRoutines, dialogue.KidRoutines{Kid: kid, Instances: instances})
		}

	case dialogue.StepPlanActivities:
		if state.Substep != dialogue.SubstepResults {
			break
		}
		results, err := s.recommend(ctx, state, h)
		if err != nil {
			return v, err
		}
		v.Results = results
	}

	return v, nil
}

func (s *ChatService) recommend(ctx context.Context, state dialogue.State, h *model.Household) (*dialogue.Results, error) {
	ctx, span := tracing.Tracer("playroom/service").Start(ctx, "recommend.query")
	defer span.End()

	catalog, err := s.catalog.ActiveEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	kidIDs := state.KidIDs()
	formats, err := s.catalog.RegisteredFormats(ctx, kidIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	var kids []model.Kid
	for _, id := range kidIDs {
		if k, ok := h.Kid(id); ok {
			kids = append(kids, k)
		}
	}

	res := s.engine.Recommend(ctx, catalog, recommend.Query{
		Format:            state.PreferFormat,
		Window:            state.TimeWindow,
		Place:             state.Place,
		Location:          h.Account.Location(),
		Coordinates:       h.Account.Coordinates,
		Kids:              kids,
		RegisteredFormats: formats,
		Now:               s.now(),
	})

	results := &dialogue.Results{Activities: res.Activities}
	outcome := "matched"
	if res.Adverse {
		results.Advisory = dialogue.AdvisoryBadWeather
		outcome = "weather_override"
	}
	if len(res.Activities) == 0 {
		outcome = "empty"
	}
	metrics.RecordRecommendation(outcome, len(res.Activities))
	span.SetAttributes(
		attribute.Int("recommend.results", len(res.Activities)),
		attribute.Bool("recommend.weather_checked", res.WeatherChecked),
		attribute.Bool("recommend.adverse", res.Adverse),
	)
	return results, nil
}
