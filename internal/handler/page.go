package handler

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/internal/middleware"
	"github.com/klamlamwork/playroom/internal/service"
	"github.com/klamlamwork/playroom/pkg/logger"
)

// SessionCookie holds the chat session id for the page flow.
const SessionCookie = "playroom_chat"

//go:embed templates/chat.html
var templateFS embed.FS

var chatTemplate = template.Must(template.ParseFS(templateFS, "templates/chat.html"))

// PageConfig holds page handler settings.
type PageConfig struct {
	LoginURL     string
	DashboardURL string
	SessionTTL   time.Duration
}

// PageHandler serves the HTML chat page.
type PageHandler struct {
	service ChatService
	cfg     PageConfig
	logger  *logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(svc ChatService, cfg PageConfig, log *logger.Logger) *PageHandler {
	return &PageHandler{
		service: svc,
		cfg:     cfg,
		logger:  log,
	}
}

type pageData struct {
	Reply     *dialogue.Reply
	Action    string
	Picker    bool
	TimeInput bool
}

// Get handles GET /chat
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	reset, _ := strconv.ParseBool(r.URL.Query().Get("reset"))
	h.turn(w, r, service.ChatRequest{Reset: reset})
}

// Post handles POST /chat
func (h *PageHandler) Post(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	in, err := formInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := validateChat("", &in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.turn(w, r, service.ChatRequest{Input: &in})
}

func (h *PageHandler) turn(w http.ResponseWriter, r *http.Request, req service.ChatRequest) {
	ctx := r.Context()
	accountID, _ := middleware.GetAccountID(ctx)

	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := middleware.CanonicalSessionID(c.Value); err == nil {
			req.SessionID = id
		}
	}

	reply, err := h.service.Turn(ctx, accountID, req)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		http.Redirect(w, r, h.cfg.DashboardURL, http.StatusSeeOther)
		return
	case errors.Is(err, service.ErrProfileMissing):
		http.Redirect(w, r, h.cfg.LoginURL, http.StatusSeeOther)
		return
	case err != nil:
		requestLogger(r, h.logger).Error("chat page turn failed", zap.Error(err))
		http.Error(w, "something went wrong", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    reply.SessionID,
		Path:     r.URL.Path,
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	data := pageData{
		Reply:     reply,
		Action:    r.URL.Path,
		Picker:    reply.Step == dialogue.StepSelectPeople,
		TimeInput: reply.InputType == dialogue.InputTypeDateTime,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatTemplate.Execute(w, data); err != nil {
		requestLogger(r, h.logger).Error("failed to render chat page", zap.Error(err))
	}
}

func formInput(r *http.Request) (dialogue.Input, error) {
	in := dialogue.Input{
		Action:    dialogue.Action(r.PostForm.Get("action")),
		StartTime: r.PostForm.Get("start_time"),
		EndTime:   r.PostForm.Get("end_time"),
	}
	var err error
	if in.CaregiverIDs, err = formIDs(r, "caregiver_ids"); err != nil {
		return in, err
	}
	if in.KidIDs, err = formIDs(r, "kid_ids"); err != nil {
		return in, err
	}
	return in, nil
}

func formIDs(r *http.Request, field string) ([]int64, error) {
	values := r.PostForm[field]
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New(field + " must contain numeric ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
