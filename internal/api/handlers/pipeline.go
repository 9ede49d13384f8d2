// Package handlers holds the HTTP handlers for the API server.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/pipeline"
	"github.com/mindthegap/govdata/pkg/logger"
)

// Runner is the slice of the orchestrator the handlers drive.
type Runner interface {
	Status() (pipeline.State, *contracts.ExecutionSummary)
	RunFull(ctx context.Context) (contracts.ExecutionSummary, error)
	RunIncremental(ctx context.Context, codes []string) (contracts.ExecutionSummary, error)
	RunStage(ctx context.Context, stage string) (contracts.ExecutionSummary, error)
}

// PipelineHandler serves pipeline status and manual triggers.
type PipelineHandler struct {
	runner Runner
	logger *logger.Logger
}

// NewPipelineHandler creates a pipeline handler.
func NewPipelineHandler(runner Runner, log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner: runner,
		logger: log.WithComponent("api.pipeline"),
	}
}

// statusResponse is the GET /pipeline/status payload.
type statusResponse struct {
	State       pipeline.State              `json:"state"`
	LastSummary *contracts.ExecutionSummary `json:"last_summary,omitempty"`
}

// Status returns the orchestrator state and the last run summary.
func (h *PipelineHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, last := h.runner.Status()
	writeJSON(w, http.StatusOK, statusResponse{State: state, LastSummary: last})
}

// runRequest is the POST /pipeline/run payload. An empty body runs the
// full pipeline; Regions restricts it to an incremental subset; Stage
// runs a single stage.
type runRequest struct {
	Regions []string `json:"regions,omitempty"`
	Stage   string   `json:"stage,omitempty"`
}

// Run triggers a pipeline run in the background and returns 202.
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Stage != "" && len(req.Regions) > 0 {
		writeError(w, http.StatusBadRequest, "stage and regions are mutually exclusive")
		return
	}

	// Fast-path 409. The orchestrator itself serializes runs and rejects
	// overlap with ErrRunInProgress, so a race here cannot interleave runs.
	state, _ := h.runner.Status()
	switch state {
	case pipeline.StateEnriching, pipeline.StateAggregating, pipeline.StateLearning:
		writeError(w, http.StatusConflict, "a pipeline run is already in progress")
		return
	}

	// The run outlives the request; errors land in the summary and log.
	go func() {
		ctx := context.Background()
		var err error
		switch {
		case req.Stage != "":
			_, err = h.runner.RunStage(ctx, req.Stage)
		case len(req.Regions) > 0:
			_, err = h.runner.RunIncremental(ctx, req.Regions)
		default:
			_, err = h.runner.RunFull(ctx)
		}
		switch {
		case errors.Is(err, pipeline.ErrRunInProgress):
			h.logger.Warn("Pipeline trigger dropped, another run is in progress")
		case err != nil:
			h.logger.WithError(err).Error("Triggered pipeline run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
