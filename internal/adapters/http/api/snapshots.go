package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/ethos/internal/domain/model"
)

// snapshotRequest mirrors the OpenAPI schema for POST /v1/snapshots.
type snapshotRequest struct {
	EventID     string             `json:"event_id"`
	CharacterID string             `json:"character_id"`
	Traits      map[string]float64 `json:"traits"`
	TS          string             `json:"ts,omitempty"`
}

func (e snapshotRequest) toEvent() (model.SnapshotEvent, error) {
	ev := model.SnapshotEvent{
		EventID:     strings.TrimSpace(e.EventID),
		CharacterID: strings.TrimSpace(e.CharacterID),
		Traits:      e.Traits,
	}
	switch {
	case ev.EventID == "":
		return ev, errors.New("missing event_id")
	case ev.CharacterID == "":
		return ev, errors.New("missing character_id")
	case e.Traits == nil:
		return ev, errors.New("missing traits")
	}
	if e.TS != "" {
		ts, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return ev, errors.New("invalid ts; must be RFC3339")
		}
		ev.TS = ts
	}
	return ev, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// handlePostSnapshot handles POST /v1/snapshots.
func (s *Server) handlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_snapshot"
	var req snapshotRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	duplicate, err := s.deps.Enqueue(r.Context(), ev)
	if err != nil {
		s.writeError(w, r, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
