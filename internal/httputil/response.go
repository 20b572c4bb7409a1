// Package httputil contains shared HTTP utilities for consistent response formatting across handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/nadmax/teamplan/internal/apperr"
)

type ErrorBody struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
	ID    string      `json:"id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func WriteJSONError(w http.ResponseWriter, message string, status int) {
	WriteJSON(w, status, ErrorBody{Error: message, Kind: apperr.KindValidation})
}

// StatusFor maps an error kind to the HTTP status returned to callers.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStateConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// WriteError renders err with the status of its kind. Collaborator failures
// are reported without their cause.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	body := ErrorBody{
		Error: err.Error(),
		Kind:  kind,
		ID:    apperr.IDOf(err),
	}
	if kind == apperr.KindCollaborator {
		body.Error = "upstream failure"
	}

	WriteJSON(w, StatusFor(kind), body)
}
