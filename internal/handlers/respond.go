package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lritter14/askdoc/internal/contextutil"
	"github.com/lritter14/askdoc/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// handleServiceError maps request-boundary failures to HTTP status codes.
// Validation detail goes back to the client; everything else is logged for
// operators and returned as a generic message.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "invalid request", "error", err)
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	logger.ErrorContext(ctx, "request failed", "error", err)
	if errors.Is(err, service.ErrModelUnavailable) {
		writeError(w, http.StatusBadGateway, "Model backend unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, defaultMsg)
}
