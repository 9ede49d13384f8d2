package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/internal/pipeline"
	"github.com/mindthegap/govdata/pkg/logger"
)

type fakeRunner struct {
	state     pipeline.State
	last      *contracts.ExecutionSummary
	fullRuns  chan struct{}
	stageRuns chan string
	incRuns   chan []string
}

func newFakeRunner(state pipeline.State) *fakeRunner {
	return &fakeRunner{
		state:     state,
		fullRuns:  make(chan struct{}, 1),
		stageRuns: make(chan string, 1),
		incRuns:   make(chan []string, 1),
	}
}

func (f *fakeRunner) Status() (pipeline.State, *contracts.ExecutionSummary) {
	return f.state, f.last
}

func (f *fakeRunner) RunFull(context.Context) (contracts.ExecutionSummary, error) {
	f.fullRuns <- struct{}{}
	return contracts.ExecutionSummary{}, nil
}

func (f *fakeRunner) RunIncremental(_ context.Context, codes []string) (contracts.ExecutionSummary, error) {
	f.incRuns <- codes
	return contracts.ExecutionSummary{}, nil
}

func (f *fakeRunner) RunStage(_ context.Context, stage string) (contracts.ExecutionSummary, error) {
	f.stageRuns <- stage
	return contracts.ExecutionSummary{}, nil
}

func TestPipelineStatus(t *testing.T) {
	runner := newFakeRunner(pipeline.StateDone)
	runner.last = &contracts.ExecutionSummary{RegionsSucceeded: 50, PatternCount: 3}
	handler := NewPipelineHandler(runner, logger.NewNop())

	rec := httptest.NewRecorder()
	handler.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pipeline/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		State       string                      `json:"state"`
		LastSummary *contracts.ExecutionSummary `json:"last_summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "done", resp.State)
	require.NotNil(t, resp.LastSummary)
	assert.Equal(t, 50, resp.LastSummary.RegionsSucceeded)
}

func TestPipelineRunFull(t *testing.T) {
	runner := newFakeRunner(pipeline.StateIdle)
	handler := NewPipelineHandler(runner, logger.NewNop())

	rec := httptest.NewRecorder()
	handler.Run(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/run", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case <-runner.fullRuns:
	case <-time.After(time.Second):
		t.Fatal("full run was not triggered")
	}
}

func TestPipelineRunIncremental(t *testing.T) {
	runner := newFakeRunner(pipeline.StateIdle)
	handler := NewPipelineHandler(runner, logger.NewNop())

	body := strings.NewReader(`{"regions":["CA","TX"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/run", body)
	rec := httptest.NewRecorder()
	handler.Run(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case codes := <-runner.incRuns:
		assert.Equal(t, []string{"CA", "TX"}, codes)
	case <-time.After(time.Second):
		t.Fatal("incremental run was not triggered")
	}
}

func TestPipelineRunConflictWhileRunning(t *testing.T) {
	runner := newFakeRunner(pipeline.StateEnriching)
	handler := NewPipelineHandler(runner, logger.NewNop())

	rec := httptest.NewRecorder()
	handler.Run(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/run", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPipelineRunRejectsStagePlusRegions(t *testing.T) {
	runner := newFakeRunner(pipeline.StateIdle)
	handler := NewPipelineHandler(runner, logger.NewNop())

	body := strings.NewReader(`{"regions":["CA"],"stage":"aggregation"}`)
	rec := httptest.NewRecorder()
	handler.Run(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/run", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeProfileGetter struct {
	profiles map[string]contracts.RegionProfile
}

func (f *fakeProfileGetter) Get(_ context.Context, code string) (contracts.RegionProfile, error) {
	p, ok := f.profiles[code]
	if !ok {
		return contracts.RegionProfile{}, fmt.Errorf("%w: %s", contracts.ErrRegionNotFound, code)
	}
	return p, nil
}

func getProfileRequest(code string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/regions/"+code+"/profile", nil)
	return mux.SetURLVars(req, map[string]string{"code": code})
}

func TestGetProfile(t *testing.T) {
	store := &fakeProfileGetter{profiles: map[string]contracts.RegionProfile{
		"CA": {Identity: contracts.RegionIdentity{Code: "CA", Name: "California", Group: "West"}},
	}}
	handler := NewRegionHandler(store, logger.NewNop())

	rec := httptest.NewRecorder()
	handler.GetProfile(rec, getProfileRequest("CA"))

	require.Equal(t, http.StatusOK, rec.Code)
	var profile contracts.RegionProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "California", profile.Identity.Name)
}

func TestGetProfileUnknownRegion(t *testing.T) {
	handler := NewRegionHandler(&fakeProfileGetter{}, logger.NewNop())

	rec := httptest.NewRecorder()
	handler.GetProfile(rec, getProfileRequest("ZZ"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProfileNotEnriched(t *testing.T) {
	handler := NewRegionHandler(&fakeProfileGetter{}, logger.NewNop())

	rec := httptest.NewRecorder()
	handler.GetProfile(rec, getProfileRequest("CA"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
