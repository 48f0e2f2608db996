package handler

import (
	"context"
	"net/http"

	"github.com/klamlamwork/playroom/internal/middleware"
	"github.com/klamlamwork/playroom/internal/model"
	"github.com/klamlamwork/playroom/pkg/logger"
)

// CompletionService marks activities as completed.
type CompletionService interface {
	MarkFiveMinFun(ctx context.Context, accountID int64, req *model.MarkFiveMinFunRequest) (*model.CompletionResult, error)
	MarkEvent(ctx context.Context, accountID int64, req *model.MarkEventRequest) (*model.CompletionResult, error)
	MarkRoutineInstance(ctx context.Context, accountID int64, req *model.MarkRoutineInstanceRequest) (*model.CompletionResult, error)
}

// CompletionHandler handles completion endpoints.
type CompletionHandler struct {
	service CompletionService
	logger  *logger.Logger
}

// NewCompletionHandler creates a new completion handler.
func NewCompletionHandler(svc CompletionService, log *logger.Logger) *CompletionHandler {
	return &CompletionHandler{
		service: svc,
		logger:  log,
	}
}

// FiveMinFun handles POST /api/v1/completions/five-min-fun
func (h *CompletionHandler) FiveMinFun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := middleware.GetAccountID(ctx)

	var req model.MarkFiveMinFunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ActivityID <= 0 {
		writeError(w, http.StatusBadRequest, "activity_id is required")
		return
	}
	if err := middleware.ValidateIDs("kid_ids", req.KidIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.MarkFiveMinFun(ctx, accountID, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "mark five-minute fun")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Event handles POST /api/v1/completions/event
func (h *CompletionHandler) Event(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := middleware.GetAccountID(ctx)

	var req model.MarkEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID <= 0 {
		writeError(w, http.StatusBadRequest, "event_id is required")
		return
	}
	if err := middleware.ValidateIDs("kid_ids", req.KidIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateDate(req.Date); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.MarkEvent(ctx, accountID, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "mark event")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RoutineInstance handles POST /api/v1/completions/routine-instance
func (h *CompletionHandler) RoutineInstance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, _ := middleware.GetAccountID(ctx)

	var req model.MarkRoutineInstanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoutineInstanceID <= 0 {
		writeError(w, http.StatusBadRequest, "routine_instance_id is required")
		return
	}

	res, err := h.service.MarkRoutineInstance(ctx, accountID, &req)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "mark routine instance")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
