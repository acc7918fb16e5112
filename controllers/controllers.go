package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bloxmate_server/services"

	"github.com/go-playground/validator/v10"
)

// Every handler answers with this envelope so clients can render validation
// failures inline instead of special-casing status codes.
type response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), response{Success: false, Error: err.Error()})
}

// statusFor maps the service error taxonomy onto HTTP statuses. Anything
// unrecognized is a store failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingParameters):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrNotYourInvite):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrDuplicateInvite),
		errors.Is(err, services.ErrDuplicateRequest),
		errors.Is(err, services.ErrActiveGroupExists),
		errors.Is(err, services.ErrGroupFull),
		errors.Is(err, services.ErrNotAMember),
		errors.Is(err, services.ErrTxConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInviteExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// decodeAndValidate parses the JSON body into dst and runs struct validation.
// A false return means the error response was already written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Error: services.ErrMissingParameters.Error()})
		return false
	}
	return true
}

// HealthCheckHandler provides a basic health check.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
