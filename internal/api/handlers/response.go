package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/archive"
	"github.com/sadewadee/safety-observer/internal/auth"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/export"
	"github.com/sadewadee/safety-observer/internal/service"
)

// MaxBodySize bounds JSON request bodies
const MaxBodySize = 1 << 20

// APIError represents an error response
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RenderJSON renders a JSON response
func RenderJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// RenderError renders an error response
func RenderError(w http.ResponseWriter, code int, message string) {
	RenderJSON(w, code, APIError{
		Code:    code,
		Message: message,
	})
}

// RenderServiceError maps a service error to its HTTP status. Unknown
// errors are logged and hidden behind a generic 500.
func RenderServiceError(w http.ResponseWriter, component string, err error) {
	code := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrObservationNotFound),
		errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrOperatorNotFound),
		errors.Is(err, service.ErrUserNotFound):
		code = http.StatusNotFound

	case errors.Is(err, service.ErrActiveObservationExists),
		errors.Is(err, service.ErrObservationCompleted),
		errors.Is(err, service.ErrObserverIDTaken),
		errors.Is(err, service.ErrCannotDeleteSelf),
		errors.Is(err, service.ErrCannotDeactivateSelf),
		errors.Is(err, service.ErrSuperseded):
		code = http.StatusConflict

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		code = http.StatusUnauthorized

	case errors.Is(err, service.ErrAccountDisabled):
		code = http.StatusForbidden

	case errors.Is(err, service.ErrStatsUnavailable):
		RenderError(w, http.StatusServiceUnavailable, service.ErrStatsUnavailable.Error())
		return

	case errors.Is(err, archive.ErrDisabled):
		code = http.StatusServiceUnavailable

	case isValidationError(err):
		code = http.StatusBadRequest
	}

	if code == http.StatusInternalServerError {
		log.Printf("[%s] Internal error: %v", component, err)
		RenderError(w, code, "Internal server error")
		return
	}

	RenderError(w, code, err.Error())
}

func isValidationError(err error) bool {
	for _, target := range []error{
		domain.ErrIncompleteHeader,
		domain.ErrInvalidDate,
		domain.ErrOperatorRequired,
		domain.ErrInvalidAnswer,
		domain.ErrNameRequired,
		domain.ErrInvalidSite,
		domain.ErrInvalidRole,
		auth.ErrPasswordTooShort,
		auth.ErrPasswordMismatch,
		auth.ErrInvalidLogin,
		service.ErrObserverIDRequired,
		service.ErrUnknownList,
		export.ErrUnknownFormat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

// currentSession returns the session set by the session middleware
func currentSession(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		RenderError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return sess, true
}

func writeFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
