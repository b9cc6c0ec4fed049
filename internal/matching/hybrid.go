// internal/matching/hybrid.go
package matching

import (
	"context"
	"time"

	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/models"
)

// HybridStrategy runs the weighted ranking and then the stable assignment over
// the identical request. Both result sets are persisted under one shared
// session id; no attempt is made to reconcile them.
type HybridStrategy struct {
	weighted Strategy
	stable   Strategy
	logger   logger.Logger
}

func NewHybridStrategy(weighted, stable Strategy, log logger.Logger) *HybridStrategy {
	return &HybridStrategy{
		weighted: weighted,
		stable:   stable,
		logger:   log.WithFields(map[string]interface{}{"algorithm": models.AlgorithmHybrid}),
	}
}

func (s *HybridStrategy) Algorithm() models.Algorithm {
	return models.AlgorithmHybrid
}

func (s *HybridStrategy) Execute(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	start := time.Now().UTC()

	// One session for both sub-runs, so bulk retrieval and purge see a
	// single run.
	req.SessionID = sessionIDFor(req)

	weightedRes, err := s.weighted.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	// The weighted pass already handled recompute deletes for this scope;
	// rerunning them here would wipe the weighted pass's own output.
	stableReq := req
	stableReq.Recompute = false

	stableRes, err := s.stable.Execute(ctx, stableReq)
	if err != nil {
		return nil, err
	}

	warnings := append([]string{}, weightedRes.Warnings...)
	warnings = append(warnings, stableRes.Warnings...)

	s.logger.Info("hybrid run finished", map[string]interface{}{
		"sessionId":       req.SessionID,
		"resultsComputed": weightedRes.ResultsComputed + stableRes.ResultsComputed,
	})

	return &models.RunResult{
		SessionID:          req.SessionID,
		AlgorithmUsed:      models.AlgorithmHybrid,
		StudentsProcessed:  maxInt(weightedRes.StudentsProcessed, stableRes.StudentsProcessed),
		ProjectsConsidered: maxInt(weightedRes.ProjectsConsidered, stableRes.ProjectsConsidered),
		ResultsComputed:    weightedRes.ResultsComputed + stableRes.ResultsComputed,
		ResultsSaved:       weightedRes.ResultsSaved + stableRes.ResultsSaved,
		Recompute:          req.Recompute,
		StartedAt:          start,
		FinishedAt:         time.Now().UTC(),
		Warnings:           warnings,
	}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
