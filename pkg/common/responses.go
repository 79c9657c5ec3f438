// Package common holds HTTP response envelopes shared by all handlers.
package common

import (
	"encoding/json"
	"net/http"

	pkgerrors "memgraph/pkg/errors"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// RespondAppError maps an application error to its HTTP status and
// sends the standard envelope. Unknown errors collapse to a plain 500
// so internals never leak to clients.
func RespondAppError(w http.ResponseWriter, err error) {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		RespondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}
	RespondError(w, httpStatus(appErr.Type), string(appErr.Type), appErr.Message)
}

func httpStatus(t pkgerrors.ErrorType) int {
	switch t {
	case pkgerrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case pkgerrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case pkgerrors.ErrorTypeForbidden:
		return http.StatusForbidden
	case pkgerrors.ErrorTypeConflict:
		return http.StatusConflict
	case pkgerrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case pkgerrors.ErrorTypeUnavailable, pkgerrors.ErrorTypeDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
