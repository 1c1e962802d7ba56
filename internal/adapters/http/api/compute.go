package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/okian/ethos/internal/domain/progression"
	"github.com/okian/ethos/internal/domain/trait"
)

// Stateless endpoints exposing the pure progression functions.

type alignmentRequest struct {
	Traits map[string]float64 `json:"traits"`
}

type alignmentResponse struct {
	trait.AlignmentSummary
	Buckets trait.Buckets `json:"buckets"`
}

func (s *Server) handleComputeAlignment(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute_alignment"
	var req alignmentRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap := trait.Snapshot(req.Traits)
	writeJSON(w, http.StatusOK, alignmentResponse{
		AlignmentSummary: trait.BalanceOf(snap),
		Buckets:          trait.Partition(snap),
	})
}

type diffRequest struct {
	Previous map[string]float64 `json:"previous"`
	Current  map[string]float64 `json:"current"`
}

type diffResponse struct {
	progression.Result
	Trends progression.Trends `json:"trends"`
}

func (s *Server) handleComputeDiff(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute_diff"
	var req diffRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res := progression.Diff(req.Previous, req.Current)
	writeJSON(w, http.StatusOK, diffResponse{Result: res, Trends: progression.TrendsOf(res.Deltas)})
}

type predictRequest struct {
	Trait        string    `json:"trait"`
	Value        float64   `json:"value"`
	RecentDeltas []float64 `json:"recent_deltas"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	var req predictRequest
	if err := s.decode(w, r, op, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Trait) == "" {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("missing trait")))
		return
	}
	writeJSON(w, http.StatusOK, progression.PredictNextMilestone(req.Trait, req.Value, req.RecentDeltas))
}

type categoryResponse struct {
	Trait    string         `json:"trait"`
	Category trait.Category `json:"category"`
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "trait")
	writeJSON(w, http.StatusOK, categoryResponse{Trait: name, Category: trait.Classify(name)})
}

type levelResponse struct {
	Value    float64         `json:"value"`
	Level    trait.LevelInfo `json:"level"`
	Progress trait.Progress  `json:"progress"`
}

// handleGetLevel handles GET /v1/levels/{value}.
func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_level"
	raw := chi.URLParam(r, "value")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		s.writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid value %q", raw)))
		return
	}
	writeJSON(w, http.StatusOK, levelResponse{
		Value:    v,
		Level:    trait.LevelOf(v),
		Progress: trait.ProgressToNextMilestone(v),
	})
}
