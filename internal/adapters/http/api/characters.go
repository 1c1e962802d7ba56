package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/okian/ethos/internal/domain/trait"
)

type observeRequest struct {
	Traits map[string]float64 `json:"traits"`
}

// handleObserve handles POST /v1/characters/{id}/observe.
func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	const op = "api.observe"
	var req observeRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	obs, err := s.deps.Observe(r.Context(), chi.URLParam(r, "id"), trait.Snapshot(req.Traits))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

// handleCommit handles POST /v1/characters/{id}/commit.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	const op = "api.commit"
	if err := s.deps.Commit(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetCharacter handles GET /v1/characters/{id}.
func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_character"
	view, err := s.deps.Character(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDeleteCharacter handles DELETE /v1/characters/{id}.
func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_character"
	if err := s.deps.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetAlignment(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_alignment"
	a, err := s.deps.Alignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleGetChanges(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_changes"
	v, err := s.deps.Changes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetTrait(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trait"
	v, err := s.deps.Trait(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "trait"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleGetToasts handles GET /v1/characters/{id}/toasts?limit=n.
func (s *Server) handleGetToasts(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_toasts"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", raw)))
			return
		}
		limit = n
	}
	toasts, err := s.deps.Toasts(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toasts)
}

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_milestones"
	ms, err := s.deps.Milestones(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handleDismissMilestone(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_milestone"
	index, err := indexParam(r)
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := s.deps.DismissMilestone(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListUnlocks(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_unlocks"
	us, err := s.deps.Unlocks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (s *Server) handleDismissUnlock(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_unlock"
	index, err := indexParam(r)
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	u, err := s.deps.DismissUnlock(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", raw)
	}
	return n, nil
}
