// internal/workers/matching/run-matching/handler_test.go
package runmatching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/models"
)

type stubRunner struct {
	lastReq models.RunRequest
	result  *models.RunResult
	err     error
}

func (s *stubRunner) Run(_ context.Context, req models.RunRequest) (*models.RunResult, error) {
	s.lastReq = req
	return s.result, s.err
}

func newTestHandler(t *testing.T, runner Runner) *Handler {
	return NewHandler(LoadConfig(), runner, logger.NewTestLogger(t))
}

func TestHandler_Execute_Success(t *testing.T) {
	runner := &stubRunner{
		result: &models.RunResult{
			SessionID:       "SESSION-abcd1234",
			AlgorithmUsed:   models.AlgorithmWeighted,
			ResultsComputed: 6,
			ResultsSaved:    6,
		},
	}
	handler := newTestHandler(t, runner)

	output, err := handler.Execute(context.Background(), &Input{
		Algorithm: "WEIGHTED",
		Persist:   true,
	})
	require.NoError(t, err)

	assert.True(t, output.Success)
	assert.Equal(t, "SESSION-abcd1234", output.SessionID)
	assert.Equal(t, 6, output.ResultsSaved)
	assert.Equal(t, models.AlgorithmWeighted, runner.lastReq.Algorithm)
	assert.Equal(t, models.ScopeAll, runner.lastReq.Scope, "empty scope defaults to ALL")
	assert.True(t, runner.lastReq.Persist)
}

func TestHandler_Execute_PassesScopeOneThrough(t *testing.T) {
	runner := &stubRunner{result: &models.RunResult{}}
	handler := newTestHandler(t, runner)

	threshold := 0.65
	_, err := handler.Execute(context.Background(), &Input{
		Algorithm: "STABLE",
		Scope:     "ONE",
		StudentID: 42,
		Recompute: true,
		Threshold: &threshold,
		Weights:   map[string]float64{"skills": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ScopeOne, runner.lastReq.Scope)
	assert.Equal(t, int64(42), runner.lastReq.StudentID)
	assert.True(t, runner.lastReq.Recompute)
	require.NotNil(t, runner.lastReq.Threshold)
	assert.Equal(t, 0.65, *runner.lastReq.Threshold)
	assert.Equal(t, map[string]float64{"skills": 1}, runner.lastReq.Weights)
}

func TestHandler_Execute_PropagatesEngineError(t *testing.T) {
	runner := &stubRunner{err: apperrors.NewStudentNotFound(99)}
	handler := newTestHandler(t, runner)

	_, err := handler.Execute(context.Background(), &Input{Algorithm: "WEIGHTED", Scope: "ONE", StudentID: 99})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStudentNotFound, apperrors.CodeOf(err))
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{
			name:      "minimal valid request",
			variables: `{"algorithm": "WEIGHTED"}`,
		},
		{
			name: "full valid request",
			variables: `{
				"algorithm": "HYBRID",
				"scope": "ONE",
				"studentId": 7,
				"recompute": true,
				"persist": true,
				"threshold": 0.6,
				"weights": {"skills": 0.5, "interests": 0.3, "workMode": 0.2}
			}`,
		},
		{
			name:      "missing algorithm",
			variables: `{"scope": "ALL"}`,
			wantErr:   true,
		},
		{
			name:      "unknown algorithm value",
			variables: `{"algorithm": "GREEDY"}`,
			wantErr:   true,
		},
		{
			name:      "threshold out of range",
			variables: `{"algorithm": "WEIGHTED", "threshold": 1.5}`,
			wantErr:   true,
		},
		{
			name:      "negative weight",
			variables: `{"algorithm": "WEIGHTED", "weights": {"skills": -1}}`,
			wantErr:   true,
		},
		{
			name:      "unknown weight key",
			variables: `{"algorithm": "WEIGHTED", "weights": {"charisma": 1}}`,
			wantErr:   true,
		},
		{
			name:      "non-integer student id",
			variables: `{"algorithm": "WEIGHTED", "studentId": "7"}`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsInvalidArgument(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToBPMN_EngineErrors(t *testing.T) {
	bpmn := apperrors.ToBPMN(apperrors.NewInvalidArgument("studentId is required when scope=ONE"), 3)
	assert.Equal(t, string(apperrors.ErrCodeInvalidArgument), bpmn.Code)
	assert.False(t, bpmn.Retryable)
	assert.Zero(t, bpmn.Retries)

	bpmn = apperrors.ToBPMN(apperrors.Wrap(apperrors.ErrCodeQueryExecutionFailed, "db down", true, errors.New("timeout")), 3)
	assert.True(t, bpmn.Retryable)
	assert.Equal(t, int32(3), bpmn.Retries)
}
