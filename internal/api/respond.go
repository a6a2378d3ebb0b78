package api

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "motorent/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps service errors onto HTTP statuses. Internal errors
// are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		message = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}
