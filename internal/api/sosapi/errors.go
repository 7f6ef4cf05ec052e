package sosapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
)

type errorBody struct {
	Error       string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// writeError maps domain errors to status codes. Internal errors are logged and never
// described to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := http.StatusInternalServerError, errorBody{Error: "internal_error"}

	if v, ok := domainerr.AsValidation(err); ok {
		status, body = http.StatusBadRequest, errorBody{Error: "validation_failed", Description: "validation failed", Fields: v.Fields}
	} else {
		switch {
		case errors.Is(err, domainerr.ErrUnauthenticated):
			status, body = http.StatusUnauthorized, errorBody{Error: "unauthenticated", Description: err.Error()}
		case errors.Is(err, domainerr.ErrForbidden):
			status, body = http.StatusForbidden, errorBody{Error: "forbidden", Description: err.Error()}
		case errors.Is(err, domainerr.ErrNotFound):
			status, body = http.StatusNotFound, errorBody{Error: "not_found", Description: err.Error()}
		case errors.Is(err, domainerr.ErrInvalidToken):
			status, body = http.StatusNotFound, errorBody{Error: "invalid_token", Description: err.Error()}
		case errors.Is(err, domainerr.ErrInvalidFormat):
			status, body = http.StatusBadRequest, errorBody{Error: "invalid_format", Description: err.Error()}
		case errors.Is(err, domainerr.ErrUnknownPhone):
			status, body = http.StatusNotFound, errorBody{Error: "unknown_phone", Description: err.Error()}
		case errors.Is(err, domainerr.ErrNotADonor):
			status, body = http.StatusBadRequest, errorBody{Error: "not_a_donor", Description: err.Error()}
		case errors.Is(err, domainerr.ErrConsentRequired):
			status, body = http.StatusConflict, errorBody{Error: "consent_required", Description: err.Error()}
		default:
			slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domainerr.Invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, domainerr.Invalid("id", "must be a positive integer")
	}
	return id, nil
}
