package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"smartscribe-backend-go/internal/services"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Message: message})
}

// WriteServiceError maps a ServiceError to its status; anything else
// becomes an opaque 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var svcErr services.ServiceError
	if errors.As(err, &svcErr) {
		WriteError(w, svcErr.Status, svcErr.Message)
		return
	}
	var failed services.TranscriptionFailed
	if errors.As(err, &failed) {
		WriteError(w, http.StatusBadGateway, "Transcription failed. Please try again.")
		return
	}
	WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
