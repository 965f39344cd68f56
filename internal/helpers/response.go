package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, status int, errs []string) {
	RespondWithJSON(w, status, models.Error{Status: status, Error: errs})
}

// RespondWithErr renders service errors: APIError keeps its status and code, anything
// else becomes a 500.
func RespondWithErr(w http.ResponseWriter, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		RespondWithJSON(w, apiErr.Status, models.Error{
			Status:  apiErr.Status,
			Error:   []string{apiErr.Code},
			Message: apiErr.Message,
		})
		return
	}

	zap.L().Error("Unhandled error", zap.Error(err))
	RespondWithError(w, http.StatusInternalServerError, []string{apierrors.CodeInternal})
}
