package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jpalmerr/pulsecheck/internal/model"
)

type tokenResource struct{ s *Server }

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type extendRequest struct {
	ID     string `json:"id"`
	Extend bool   `json:"extend"`
}

func (t tokenResource) post(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeBody(w, r, &in); err != nil {
		t.s.sendServiceError(w, r, err)
		return
	}
	token, err := t.s.tokens.Issue(r.Context(), in.Phone, in.Password)
	if err != nil {
		t.s.sendServiceError(w, r, err)
		return
	}
	t.s.sendJSON(w, http.StatusOK, token)
}

func (t tokenResource) get(w http.ResponseWriter, r *http.Request) {
	token, err := t.s.tokens.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		status := statusFor(err)
		// a well-formed id that does not resolve is reported as a server problem
		if errors.Is(err, model.ErrNotFound) {
			status = http.StatusInternalServerError
		}
		t.s.sendServiceErrorStatus(w, r, status, err)
		return
	}
	t.s.sendJSON(w, http.StatusOK, token)
}

func (t tokenResource) put(w http.ResponseWriter, r *http.Request) {
	var in extendRequest
	if err := decodeBody(w, r, &in); err != nil {
		t.s.sendServiceError(w, r, err)
		return
	}
	if !in.Extend {
		t.s.sendServiceError(w, r, fmt.Errorf("%w: extend must be true", model.ErrValidation))
		return
	}
	if _, err := t.s.tokens.Extend(r.Context(), in.ID); err != nil {
		t.s.sendServiceError(w, r, err)
		return
	}
	t.s.sendMessage(w, "token extended")
}

func (t tokenResource) delete(w http.ResponseWriter, r *http.Request) {
	if err := t.s.tokens.Revoke(r.Context(), r.URL.Query().Get("id")); err != nil {
		t.s.sendServiceError(w, r, err)
		return
	}
	t.s.sendMessage(w, "token deleted")
}
