package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jpalmerr/pulsecheck/internal/model"
)

type checkResource struct{ s *Server }

func (c checkResource) post(w http.ResponseWriter, r *http.Request) {
	var spec model.CheckSpec
	if err := decodeBody(w, r, &spec); err != nil {
		c.s.sendServiceError(w, r, err)
		return
	}
	check, err := c.s.checks.Create(r.Context(), tokenHeader(r), spec)
	if err != nil {
		c.s.sendServiceError(w, r, err)
		return
	}
	c.s.sendJSON(w, http.StatusOK, check)
}

func (c checkResource) get(w http.ResponseWriter, r *http.Request) {
	check, err := c.s.checks.Get(r.Context(), r.URL.Query().Get("id"), tokenHeader(r))
	if err != nil {
		c.s.sendServiceError(w, r, err)
		return
	}
	c.s.sendJSON(w, http.StatusOK, check)
}

func (c checkResource) put(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeBody(w, r, &body); err != nil {
		c.s.sendServiceError(w, r, err)
		return
	}

	var id string
	if raw, ok := body["id"]; !ok || json.Unmarshal(raw, &id) != nil {
		c.s.sendServiceError(w, r, fmt.Errorf("%w: id is required", model.ErrValidation))
		return
	}

	check, err := c.s.checks.Update(r.Context(), id, patchFrom(body), tokenHeader(r))
	if err != nil {
		c.s.sendServiceError(w, r, err)
		return
	}
	c.s.sendJSON(w, http.StatusOK, check)
}

func (c checkResource) delete(w http.ResponseWriter, r *http.Request) {
	if err := c.s.checks.Delete(r.Context(), r.URL.Query().Get("id"), tokenHeader(r)); err != nil {
		c.s.sendServiceError(w, r, err)
		return
	}
	c.s.sendMessage(w, "check deleted")
}

// patchFrom decodes each known field on its own; a field of the wrong JSON
// type is left out of the patch rather than failing the request.
func patchFrom(body map[string]json.RawMessage) model.CheckPatch {
	var p model.CheckPatch
	if raw, ok := body["protocol"]; ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			p.Protocol = &v
		}
	}
	if raw, ok := body["url"]; ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			p.URL = &v
		}
	}
	if raw, ok := body["method"]; ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			p.Method = &v
		}
	}
	if raw, ok := body["successCodes"]; ok {
		var v []int
		if json.Unmarshal(raw, &v) == nil && v != nil {
			p.SuccessCodes = v
		}
	}
	if raw, ok := body["timeoutSeconds"]; ok {
		var v int
		if json.Unmarshal(raw, &v) == nil {
			p.TimeoutSeconds = &v
		}
	}
	return p
}
