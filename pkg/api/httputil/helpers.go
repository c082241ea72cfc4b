// Package httputil holds the response helpers shared by the API handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/valuation"
)

const maxBodyBytes = 4 << 20

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Fields []valuation.FieldError `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteDomainError maps core errors to HTTP statuses:
// invalid assumptions 400, missing rows or symbols 404, upstream failures 502.
func WriteDomainError(w http.ResponseWriter, err error) {
	var assumptionsErr *valuation.AssumptionsError
	if errors.As(err, &assumptionsErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Fields: assumptionsErr.Fields})
		return
	}
	WriteError(w, StatusFor(err), err.Error())
}

func StatusFor(err error) int {
	var apiErr *ingest.APIError
	switch {
	case errors.Is(err, valuation.ErrInvalidAssumptions), errors.Is(err, store.ErrInvalidPosition):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ingest.ErrNoData):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrPoolNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CORS sets permissive headers for the local UI. It returns true when the
// request was a preflight and has been answered.
func CORS(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(append(methods, http.MethodOptions), ", "))
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// RequireMethod writes a 405 and returns false when r.Method is not allowed.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON decodes the body into v, writing a 400 on failure. Fields of v
// that the body omits keep their current values, so callers can prefill
// defaults.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}
