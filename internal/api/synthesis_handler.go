package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/phrazzld/synth-api/internal/api/shared"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/logger"
	"github.com/phrazzld/synth-api/internal/task"
)

// SynthesisService is the task engine surface used by the handlers.
type SynthesisService interface {
	Submit(ctx context.Context, owner string, req domain.SynthesisRequest) (string, error)
	CheckOne(ctx context.Context, taskID string, scope task.Scope) (*domain.TaskRecord, error)
	List(ctx context.Context, owner string) ([]*domain.TaskRecord, error)
	Delete(ctx context.Context, owner, taskID string) error
}

// SynthesisHandler handles synthesis task HTTP requests
type SynthesisHandler struct {
	service SynthesisService
}

// NewSynthesisHandler creates a new SynthesisHandler
func NewSynthesisHandler(service SynthesisService) *SynthesisHandler {
	return &SynthesisHandler{service: service}
}

// Submit handles POST /api/synthesis and the legacy POST /synthesize.
func (h *SynthesisHandler) Submit(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req SynthesisRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	taskID, err := h.service.Submit(r.Context(), owner, req.ToDomain())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContext(r.Context()).Info("synthesis task accepted", "task_id", taskID)
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{TaskID: taskID})
}

// Get handles GET /api/synthesis/{taskId}.
func (h *SynthesisHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, taskID, ok := handleOwnerAndPathTaskID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.CheckOne(r.Context(), taskID, task.OwnedBy(owner))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(rec))
}

// CheckStatus handles the legacy POST /check_status with a {taskId} body.
func (h *SynthesisHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req CheckStatusRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := validateTaskID(req.TaskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := h.service.CheckOne(r.Context(), req.TaskID, task.OwnedBy(owner))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToLegacyStatus(rec))
}

// List handles GET /api/synthesis. Tasks are returned newest first.
func (h *SynthesisHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.list(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{Tasks: tasksToResponse(recs)})
}

// History handles the legacy GET /history.
func (h *SynthesisHandler) History(w http.ResponseWriter, r *http.Request) {
	recs, ok := h.list(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{History: tasksToResponse(recs)})
}

// Delete handles DELETE /api/synthesis/{taskId} and the legacy
// DELETE /history/{taskId}.
func (h *SynthesisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, taskID, ok := handleOwnerAndPathTaskID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), owner, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	logger.FromContext(r.Context()).Info("synthesis task deleted", "task_id", taskID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SynthesisHandler) list(w http.ResponseWriter, r *http.Request) ([]*domain.TaskRecord, bool) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return nil, false
	}

	recs, err := h.service.List(r.Context(), owner)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return nil, false
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, true
}
