package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/internal/middleware"
	"github.com/klamlamwork/playroom/internal/service"
	"github.com/klamlamwork/playroom/pkg/logger"
)

// ChatService runs one conversation turn.
type ChatService interface {
	Turn(ctx context.Context, accountID int64, req service.ChatRequest) (*dialogue.Reply, error)
}

// ChatHandler handles the JSON chat endpoints.
type ChatHandler struct {
	service ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
	dialogue.Input
}

// Post handles POST /api/v1/chat
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := middleware.GetAccountID(ctx)

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sessionID, err := validateChat(req.SessionID, &req.Input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn := service.ChatRequest{SessionID: sessionID, Reset: req.Reset}
	if hasInput(req.Input) {
		in := req.Input
		turn.Input = &in
	}

	reply, err := h.service.Turn(ctx, accountID, turn)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "process chat turn")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// Get handles GET /api/v1/chat
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := middleware.GetAccountID(ctx)

	sessionID, err := validateChat(r.URL.Query().Get("session_id"), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reset, _ := strconv.ParseBool(r.URL.Query().Get("reset"))

	reply, err := h.service.Turn(ctx, accountID, service.ChatRequest{SessionID: sessionID, Reset: reset})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "load chat")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// hasInput reports whether the body carries an action or a payload.
func hasInput(in dialogue.Input) bool {
	return in.Action != "" || len(in.CaregiverIDs) > 0 || len(in.KidIDs) > 0 ||
		in.StartTime != "" || in.EndTime != ""
}

// validateChat checks the payload and returns the canonical session id.
func validateChat(sessionID string, in *dialogue.Input) (string, error) {
	if sessionID != "" {
		canonical, err := middleware.CanonicalSessionID(sessionID)
		if err != nil {
			return "", err
		}
		sessionID = canonical
	}
	if in == nil {
		return sessionID, nil
	}
	if err := middleware.ValidateIDs("caregiver_ids", in.CaregiverIDs); err != nil {
		return "", err
	}
	if err := middleware.ValidateIDs("kid_ids", in.KidIDs); err != nil {
		return "", err
	}
	if err := middleware.ValidateTimeInput(in.StartTime); err != nil {
		return "", err
	}
	if err := middleware.ValidateTimeInput(in.EndTime); err != nil {
		return "", err
	}
	return sessionID, nil
}
