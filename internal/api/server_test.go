package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

func getJSON(t *testing.T, srv *Server, path string, out any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	srv.Handler().ServeHTTP(rec, req)

	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))

	return rec.Code
}

func TestStatusProgression(t *testing.T) {
	srv := NewServer("nightly")

	var status statusResponse
	code := getJSON(t, srv, "/status", &status)
	assert.Equal(t, 200, code)
	assert.Equal(t, "nightly", status.Pipeline)
	assert.Empty(t, status.Jobs)

	srv.JobStarted(model.Job{ID: "build", Required: true})

	code = getJSON(t, srv, "/status", &status)
	assert.Equal(t, 200, code)
	require.Contains(t, status.Jobs, "build")
	assert.Equal(t, "running", status.Jobs["build"].Outcome)
	assert.True(t, status.Jobs["build"].Required)

	srv.JobSettled(model.Job{ID: "build"}, model.Result{
		JobID:    "build",
		Required: true,
		Outcome:  model.OutcomeFailed,
		Reason:   model.ReasonStep,
		Duration: 3 * time.Second,
	})

	code = getJSON(t, srv, "/status", &status)
	assert.Equal(t, 200, code)
	assert.Equal(t, "failed", status.Jobs["build"].Outcome)
	assert.Equal(t, model.ReasonStep, status.Jobs["build"].Reason)
	assert.Equal(t, "3s", status.Jobs["build"].Duration)
}

func TestVerdictPendingThenFinal(t *testing.T) {
	srv := NewServer("nightly")

	var verdict verdictResponse
	code := getJSON(t, srv, "/verdict", &verdict)
	assert.Equal(t, 200, code)
	assert.Equal(t, "pending", verdict.Verdict)

	srv.RunFinished(model.VerdictFailure, map[string]model.Result{
		"build": {JobID: "build", Required: true, Outcome: model.OutcomeFailed},
		"test":  {JobID: "test", Required: true, Outcome: model.OutcomeSkipped, RequiredCause: true, Cause: "build"},
	})

	code = getJSON(t, srv, "/verdict", &verdict)
	assert.Equal(t, 200, code)
	assert.Equal(t, "failure", verdict.Verdict)

	var status statusResponse
	getJSON(t, srv, "/status", &status)
	assert.Equal(t, "skipped", status.Jobs["test"].Outcome)
	assert.Equal(t, "build", status.Jobs["test"].Cause)
}
