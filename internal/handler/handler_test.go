package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/internal/middleware"
	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/internal/service"
	"github.com/klamlamwork/playroom/pkg/logger"
)

const (
	testSecret  = "handler-secret"
	testSession = "0190f3a4-7b1c-7d2e-8f00-1234567890ab"
)

type fakeChat struct {
	err       error
	reply     dialogue.Reply
	accountID int64
	requests  []service.ChatRequest
}

func (f *fakeChat) Turn(ctx context.Context, accountID int64, req service.ChatRequest) (*dialogue.Reply, error) {
	f.accountID = accountID
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	reply := f.reply
	reply.SessionID = req.SessionID
	if reply.SessionID == "" {
		reply.SessionID = testSession
	}
	return &reply, nil
}

type fakeCompletions struct {
	err      error
	fiveMin  *model.MarkFiveMinFunRequest
	event    *model.MarkEventRequest
	instance *model.MarkRoutineInstanceRequest
}

func (f *fakeCompletions) MarkFiveMinFun(ctx context.Context, accountID int64, req *model.MarkFiveMinFunRequest) (*model.CompletionResult, error) {
	f.fiveMin = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.CompletionResult{Success: true, Created: len(req.KidIDs)}, nil
}

func (f *fakeCompletions) MarkEvent(ctx context.Context, accountID int64, req *model.MarkEventRequest) (*model.CompletionResult, error) {
	f.event = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.CompletionResult{Success: true, Created: len(req.KidIDs)}, nil
}

func (f *fakeCompletions) MarkRoutineInstance(ctx context.Context, accountID int64, req *model.MarkRoutineInstanceRequest) (*model.CompletionResult, error) {
	f.instance = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.CompletionResult{Success: true, Created: 1}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestRouter(chat ChatService, completions CompletionService) http.Handler {
	log := logger.NewNop()
	chatHandler := NewChatHandler(chat, log)
	completionHandler := NewCompletionHandler(completions, log)
	pageHandler := NewPageHandler(chat, PageConfig{
		LoginURL:     "/login/",
		DashboardURL: "/dashboard/",
		SessionTTL:   time.Hour,
	}, log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(testSecret))
		r.Get("/chat", chatHandler.Get)
		r.Post("/chat", chatHandler.Post)
		r.Post("/completions/five-min-fun", completionHandler.FiveMinFun)
		r.Post("/completions/event", completionHandler.Event)
		r.Post("/completions/routine-instance", completionHandler.RoutineInstance)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageAuth(testSecret, "/login/"))
		r.Get("/chat", pageHandler.Get)
		r.Post("/chat", pageHandler.Post)
	})
	return r
}

func authed(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, 1, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChatPostAppliesInput(t *testing.T) {
	chat := &fakeChat{reply: dialogue.Reply{Step: dialogue.StepPeopleMenu, Message: "What do Mia want to do today?"}}
	h := newTestRouter(chat, &fakeCompletions{})

	body := `{"session_id":"` + testSession + `","action":"select","kid_ids":[20]}`
	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))))

	require.Equal(t, http.StatusOK, rec.Code)
	var reply dialogue.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, dialogue.StepPeopleMenu, reply.Step)
	assert.Equal(t, testSession, reply.SessionID)

	require.Len(t, chat.requests, 1)
	assert.Equal(t, int64(1), chat.accountID)
	require.NotNil(t, chat.requests[0].Input)
	assert.Equal(t, dialogue.ActionSelect, chat.requests[0].Input.Action)
	assert.Equal(t, []int64{20}, chat.requests[0].Input.KidIDs)
}

func TestChatPostWithoutPayloadOnlyRenders(t *testing.T) {
	chat := &fakeChat{}
	h := newTestRouter(chat, &fakeCompletions{})

	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"reset":true}`))))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, chat.requests, 1)
	assert.Nil(t, chat.requests[0].Input)
	assert.True(t, chat.requests[0].Reset)
}

func TestChatPostValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"action":`},
		{"bad session id", `{"session_id":"abc","action":"back"}`},
		{"negative kid id", `{"action":"select","kid_ids":[-1]}`},
		{"oversized time", `{"action":"submit","start_time":"` + strings.Repeat("9", 40) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{}
			h := newTestRouter(chat, &fakeCompletions{})
			rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(tt.body))))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, chat.requests)
		})
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrUnauthorized, http.StatusForbidden},
		{service.ErrProfileMissing, http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newTestRouter(&fakeChat{err: tt.err}, &fakeCompletions{})
			rec := do(t, h, authed(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestChatGetRequiresAuth(t *testing.T) {
	h := newTestRouter(&fakeChat{}, &fakeCompletions{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatGetPassesSessionAndReset(t *testing.T) {
	chat := &fakeChat{}
	h := newTestRouter(chat, &fakeCompletions{})

	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat?session_id="+testSession+"&reset=true", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, chat.requests, 1)
	assert.Equal(t, testSession, chat.requests[0].SessionID)
	assert.True(t, chat.requests[0].Reset)
	assert.Nil(t, chat.requests[0].Input)
}

func TestChatCanonicalizesSessionID(t *testing.T) {
	chat := &fakeChat{}
	h := newTestRouter(chat, &fakeCompletions{})

	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"session_id":"urn:uuid:`+testSession+`","action":"back"}`))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, authed(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat?session_id=%7B"+testSession+"%7D", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, chat.requests, 2)
	assert.Equal(t, testSession, chat.requests[0].SessionID)
	assert.Equal(t, testSession, chat.requests[1].SessionID)
}

func TestCompletionEndpoints(t *testing.T) {
	completions := &fakeCompletions{}
	h := newTestRouter(&fakeChat{}, completions)

	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/five-min-fun",
		strings.NewReader(`{"activity_id":101,"kid_ids":[20,21]}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	var res model.CompletionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, int64(101), completions.fiveMin.ActivityID)

	rec = do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/event",
		strings.NewReader(`{"event_id":3,"kid_ids":[20],"date":"2026-06-06"}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-06-06", completions.event.Date)

	rec = do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/routine-instance",
		strings.NewReader(`{"routine_instance_id":7}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), completions.instance.RoutineInstanceID)
}

func TestCompletionValidation(t *testing.T) {
	h := newTestRouter(&fakeChat{}, &fakeCompletions{})

	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/five-min-fun",
		strings.NewReader(`{"kid_ids":[20]}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/event",
		strings.NewReader(`{"event_id":3,"kid_ids":[20],"date":"June 6"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/routine-instance",
		strings.NewReader(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletionErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidRequest, http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := newTestRouter(&fakeChat{}, &fakeCompletions{err: tt.err})
			rec := do(t, h, authed(t, httptest.NewRequest(http.MethodPost, "/api/v1/completions/routine-instance",
				strings.NewReader(`{"routine_instance_id":7}`))))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPageRendersPickerAndSetsCookie(t *testing.T) {
	chat := &fakeChat{reply: dialogue.Reply{
		Step:    dialogue.StepSelectPeople,
		Message: "Who do you want to ask about today?",
		Kids:    []dialogue.PersonChoice{{ID: 20, Name: "Mia"}},
	}}
	h := newTestRouter(chat, &fakeCompletions{})

	rec := do(t, h, authed(t, httptest.NewRequest(http.MethodGet, "/chat", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Who do you want to ask about today?")
	assert.Contains(t, body, `name="kid_ids" value="20"`)
	assert.Contains(t, body, "Mia")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, testSession, cookies[0].Value)
}

func TestPagePostUsesSessionCookie(t *testing.T) {
	chat := &fakeChat{reply: dialogue.Reply{
		Step:      dialogue.StepPlanActivities,
		Substep:   dialogue.SubstepTimeInput,
		InputType: dialogue.InputTypeDateTime,
	}}
	h := newTestRouter(chat, &fakeCompletions{})

	form := url.Values{"action": {"yes"}, "kid_ids": {"20", "21"}}
	req := authed(t, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(form.Encode())))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: testSession})
	rec := do(t, h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `type="datetime-local"`)
	require.Len(t, chat.requests, 1)
	assert.Equal(t, testSession, chat.requests[0].SessionID)
	assert.Equal(t, dialogue.ActionYes, chat.requests[0].Input.Action)
	assert.Equal(t, []int64{20, 21}, chat.requests[0].Input.KidIDs)
}

func TestPageRejectsNonNumericIDs(t *testing.T) {
	h := newTestRouter(&fakeChat{}, &fakeCompletions{})

	form := url.Values{"action": {"select"}, "kid_ids": {"mia"}}
	req := authed(t, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(form.Encode())))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageRedirects(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		location string
	}{
		{"vendor account", service.ErrUnauthorized, "/dashboard/"},
		{"missing profile", service.ErrProfileMissing, "/login/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeChat{err: tt.err}, &fakeCompletions{})
			rec := do(t, h, authed(t, httptest.NewRequest(http.MethodGet, "/chat", nil)))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}

	h := newTestRouter(&fakeChat{}, &fakeCompletions{})
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/", rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h = NewHealthHandler(fakePinger{err: errors.New("closed")}, nil)
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unavailable")
}
