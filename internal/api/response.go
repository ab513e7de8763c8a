package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"roastradar/internal/apperr"
)

// Envelope is the fixed response shape for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// writeError maps an error to its status code and user-visible message.
// Errors without a kind are reported as a generic internal failure.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Printf("Unclassified error: %v", err)
		writeJSON(w, http.StatusInternalServerError, Envelope{Success: false, Message: "internal server error"})
		return
	}
	if ae.Kind == apperr.Internal {
		log.Printf("Internal error: %v", err)
	}
	if ae.Kind == apperr.RateLimited && ae.RetryAfterMinutes > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(ae.RetryAfterMinutes*60))
		writeJSON(w, ae.Kind.HTTPStatus(), Envelope{
			Success: false,
			Message: "rate limit exceeded, please try again after " + strconv.Itoa(ae.RetryAfterMinutes) + " minutes",
		})
		return
	}
	writeJSON(w, ae.Kind.HTTPStatus(), Envelope{Success: false, Message: ae.Message})
}
