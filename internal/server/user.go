package server

import (
	"net/http"

	"github.com/jpalmerr/pulsecheck/internal/users"
)

type userResource struct{ s *Server }

func (u userResource) post(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeBody(w, r, &in); err != nil {
		u.s.sendServiceError(w, r, err)
		return
	}
	if err := u.s.users.Register(r.Context(), in); err != nil {
		u.s.sendServiceError(w, r, err)
		return
	}
	u.s.sendMessage(w, "user created")
}

func (u userResource) get(w http.ResponseWriter, r *http.Request) {
	profile, err := u.s.users.Get(r.Context(), r.URL.Query().Get("phone"), tokenHeader(r))
	if err != nil {
		u.s.sendServiceError(w, r, err)
		return
	}
	u.s.sendJSON(w, http.StatusOK, profile)
}

func (u userResource) put(w http.ResponseWriter, r *http.Request) {
	var in users.UpdateInput
	if err := decodeBody(w, r, &in); err != nil {
		u.s.sendServiceError(w, r, err)
		return
	}
	if _, err := u.s.users.Update(r.Context(), in, tokenHeader(r)); err != nil {
		u.s.sendServiceError(w, r, err)
		return
	}
	u.s.sendMessage(w, "user updated")
}

func (u userResource) delete(w http.ResponseWriter, r *http.Request) {
	if err := u.s.users.Delete(r.Context(), r.URL.Query().Get("phone"), tokenHeader(r)); err != nil {
		u.s.sendServiceError(w, r, err)
		return
	}
	u.s.sendMessage(w, "user deleted")
}
