// Package httputil writes the JSON response envelope shared by the API and
// the middleware layer.
package httputil

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/stillpoint/serenity/internal/apperr"
)

// debugMode controls whether internal error detail is included in responses.
// Set once at startup from config; never enabled in production.
var debugMode atomic.Bool

// SetDebug toggles inclusion of internal error detail in responses.
func SetDebug(enabled bool) { debugMode.Store(enabled) }

type errorBody struct {
	Code    apperr.Code       `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Debug   string            `json:"debug,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps any error to the JSON error envelope. Errors outside the
// apperr taxonomy are reported as Internal with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	appErr := apperr.FromError(err)
	if appErr == nil {
		appErr = apperr.Internal("internal server error", err)
	}

	body := errorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if debugMode.Load() {
		if cause := appErr.Unwrap(); cause != nil {
			body.Debug = cause.Error()
		}
	}

	WriteJSON(w, appErr.HTTPStatus, map[string]errorBody{"error": body})
}
