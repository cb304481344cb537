package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/synth-api/internal/api/shared"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/logger"
	"github.com/phrazzld/synth-api/internal/service/auth"
)

// maxTaskIDLength bounds task ids accepted from clients. Polly task ids are
// UUIDs.
const maxTaskIDLength = 128

// ownerFromRequest extracts the authenticated owner placed in the request
// context by the auth middleware. It writes a 401 response when absent.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := shared.GetOwner(r.Context())
	if !ok {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Warn("owner not found in request context")
		HandleAPIError(w, r, auth.ErrMissingToken, "Owner not found")
		return "", false
	}
	return owner, true
}

// validateTaskID checks a client supplied task id.
func validateTaskID(taskID string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return domain.NewValidationError("taskId", "is required")
	}
	if len(taskID) > maxTaskIDLength || strings.ContainsAny(taskID, "/?#") {
		return domain.NewValidationError("taskId", "has invalid format")
	}
	return nil
}

// handleOwnerAndPathTaskID extracts both the owner from context and the task
// id from the path parameters. It writes an error response if either
// extraction fails.
func handleOwnerAndPathTaskID(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return "", "", false
	}

	taskID := chi.URLParam(r, "taskId")
	if err := validateTaskID(taskID); err != nil {
		logger.FromContextOrDefault(r.Context(), slog.Default()).
			Warn("invalid taskId path parameter", slog.String("value", taskID))
		HandleAPIError(w, r, err, "")
		return "", "", false
	}

	return owner, strings.TrimSpace(taskID), true
}
