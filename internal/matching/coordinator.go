// internal/matching/coordinator.go
package matching

import (
	"context"
	"time"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/common/metrics"
	"bestchoice-workers/internal/models"
)

// Coordinator dispatches run requests to the registered strategies. The
// mapping is built once at construction and passed in explicitly; there is no
// ambient registry.
type Coordinator struct {
	strategies map[models.Algorithm]Strategy
	logger     logger.Logger
}

func NewCoordinator(log logger.Logger, strategies ...Strategy) *Coordinator {
	m := make(map[models.Algorithm]Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Algorithm()] = s
	}
	return &Coordinator{strategies: m, logger: log}
}

// Run validates the request, selects the strategy and delegates entirely.
func (c *Coordinator) Run(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	strategy, ok := c.strategies[req.Algorithm]
	if !ok {
		return nil, apperrors.NewUnknownAlgorithm(string(req.Algorithm))
	}

	start := time.Now()
	result, err := strategy.Execute(ctx, req)

	algorithm := string(req.Algorithm)
	if err != nil {
		metrics.MatchingRunsTotal.WithLabelValues(algorithm, "error").Inc()
		c.logger.Error("matching run failed", map[string]interface{}{
			"algorithm": algorithm,
			"error":     err,
		})
		return nil, err
	}

	metrics.MatchingRunsTotal.WithLabelValues(algorithm, "ok").Inc()
	metrics.MatchingRunDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())

	return result, nil
}
