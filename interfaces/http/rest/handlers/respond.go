package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "thoughtnet/pkg/errors"
)

// messageResponse is the error body shape the browser client expects.
type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, messageResponse{Message: message})
}

// respondAppError maps an application error to its status and
// caller-facing message. Anything that is not an AppError becomes a
// generic 500; the detail belongs in the server log, not the response.
func respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		respondMessage(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	respondMessage(w, http.StatusInternalServerError, "Internal server error")
}
