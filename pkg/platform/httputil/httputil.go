// Package httputil writes JSON responses and maps domain errors to HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "verity/pkg/domain-errors"
)

type errorBody struct {
	Error       string   `json:"error"`
	Description string   `json:"error_description,omitempty"`
	Missing     []string `json:"missing,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes {"error","error_description"}.
// Internal and persistence failures never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	status := StatusFor(code)
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
			body.Missing = de.Missing
		}
	}
	WriteJSON(w, status, body)
}

// StatusFor returns the HTTP status for a domain error code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidState, dErrors.CodeDuplicateInProgress, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeIncomplete:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
