package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jpalmerr/pulsecheck/internal/model"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendMessage(w http.ResponseWriter, msg string) {
	s.sendJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, model.ErrTokenExpired):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAuth):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrLimitExceeded):
		return http.StatusNotAcceptable
	default:
		// ErrConflict, ErrStore, ErrInconsistent and anything unexpected
		return http.StatusInternalServerError
	}
}

// sendServiceError writes err with the status from statusFor. Details of
// server-side failures are logged, not returned.
func (s *Server) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.sendServiceErrorStatus(w, r, statusFor(err), err)
}

func (s *Server) sendServiceErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("error", err.Error()),
		)
		msg = internalMessage(err)
	}
	s.sendError(w, status, msg)
}

func internalMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrConflict):
		return "resource may already exist"
	case errors.Is(err, model.ErrInconsistent):
		return "could not remove the check from the user record"
	default:
		return "internal server problem"
	}
}

// decodeBody reads a JSON body into v. An unparsable body is a validation error.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", model.ErrValidation, err)
	}
	return nil
}
