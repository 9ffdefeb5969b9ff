package api

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog/log"

	"github.com/hay-kot/marktimer/internal/core/timer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("json encode failed")
	}
}

type errResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an error code onto an HTTP status.
func statusFor(code string) int {
	switch code {
	case timer.CodeNotFound:
		return http.StatusNotFound
	case timer.CodeInvalidState, timer.CodeDuplicateMarkTime:
		return http.StatusConflict
	case timer.CodeOutOfBounds:
		return http.StatusUnprocessableEntity
	case timer.CodeValidation:
		return http.StatusBadRequest
	case timer.CodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its code and, for validation failures, the
// offending fields.
func writeError(w http.ResponseWriter, err error) {
	code := timer.Code(err)
	body := errResponse{Error: err.Error(), Code: code, Fields: fieldErrors(err)}
	if len(body.Fields) > 0 && code == timer.CodeInternal {
		body.Code = timer.CodeValidation
	}

	status := statusFor(body.Code)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func fieldErrors(err error) map[string]string {
	var fe criterio.FieldErrors
	if errors.As(err, &fe) {
		out := make(map[string]string, len(fe))
		for _, f := range fe {
			out[f.Field] = f.Err.Error()
		}
		return out
	}

	var ve validation.Errors
	if errors.As(err, &ve) {
		out := make(map[string]string, len(ve))
		for field, e := range ve {
			if e != nil {
				out[field] = e.Error()
			}
		}
		return out
	}
	return nil
}
