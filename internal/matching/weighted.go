// internal/matching/weighted.go
package matching

import (
	"context"
	"sort"
	"time"

	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/common/metrics"
	"bestchoice-workers/internal/models"
)

// WeightedStrategy scores every student in scope against every project and
// ranks the projects per student. The output is a recommendation list, one
// record per pair, with dense ranks 1..N.
type WeightedStrategy struct {
	students StudentSource
	projects ProjectSource
	results  ResultSink
	opts     Options
	logger   logger.Logger
}

func NewWeightedStrategy(students StudentSource, projects ProjectSource, results ResultSink, opts Options, log logger.Logger) *WeightedStrategy {
	return &WeightedStrategy{
		students: students,
		projects: projects,
		results:  results,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"algorithm": models.AlgorithmWeighted}),
	}
}

func (s *WeightedStrategy) Algorithm() models.Algorithm {
	return models.AlgorithmWeighted
}

func (s *WeightedStrategy) Execute(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
	start := time.Now().UTC()
	warnings := []string{}

	sessionID := sessionIDFor(req)
	threshold := thresholdFor(req, s.opts.DefaultThreshold)

	weights, substituted := WeightsFromMap(req.Weights, s.opts.DefaultWeights).Normalize()
	if substituted {
		warnings = append(warnings, zeroWeightsWarning)
	}

	students, err := resolveScope(ctx, req, s.students)
	if err != nil {
		return nil, err
	}

	// The project set is loaded once per run, not once per student.
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	matrix, err := buildScoreMatrix(ctx, students, projects, weights, s.opts.scoreWorkers())
	if err != nil {
		return nil, err
	}

	resultsComputed := 0
	resultsSaved := 0

	for si, student := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if req.Recompute {
			if err := s.results.DeleteByStudent(ctx, student.ID); err != nil {
				return nil, err
			}
		}

		ranked := rankRow(matrix[si], projects)

		records := make([]models.MatchingResult, 0, len(ranked))
		for rank, pi := range ranked {
			score := matrix[si][pi]
			records = append(records, models.MatchingResult{
				SessionID:          sessionID,
				StudentID:          student.ID,
				ProjectID:          projects[pi].ID,
				GlobalScore:        score.Global,
				SkillsScore:        score.Skills,
				InterestsScore:     score.Interests,
				WorkModeScore:      score.WorkMode,
				SkillsWeight:       weights.Skills,
				InterestsWeight:    weights.Interests,
				WorkModeWeight:     weights.WorkMode,
				ThresholdUsed:      threshold,
				AboveThreshold:     score.Global >= threshold,
				RecommendationRank: rank + 1,
				AlgorithmUsed:      string(models.AlgorithmWeighted),
			})
		}
		resultsComputed += len(records)

		// Writes stay per student: a failure mid-run leaves completed
		// students' records intact.
		if req.Persist {
			if err := s.results.SaveResults(ctx, records); err != nil {
				return nil, err
			}
			resultsSaved += len(records)
		}
	}

	metrics.MatchingPairsScored.WithLabelValues(string(models.AlgorithmWeighted)).Add(float64(resultsComputed))
	metrics.MatchingResultsPersisted.WithLabelValues(string(models.AlgorithmWeighted)).Add(float64(resultsSaved))

	s.logger.Info("weighted run finished", map[string]interface{}{
		"sessionId":       sessionID,
		"students":        len(students),
		"projects":        len(projects),
		"resultsComputed": resultsComputed,
		"resultsSaved":    resultsSaved,
	})

	return &models.RunResult{
		SessionID:          sessionID,
		AlgorithmUsed:      models.AlgorithmWeighted,
		StudentsProcessed:  len(students),
		ProjectsConsidered: len(projects),
		ResultsComputed:    resultsComputed,
		ResultsSaved:       resultsSaved,
		Recompute:          req.Recompute,
		StartedAt:          start,
		FinishedAt:         time.Now().UTC(),
		Warnings:           warnings,
	}, nil
}

// rankRow orders project indexes by descending global score; equal scores fall
// back to ascending project id so reruns produce identical ranks.
func rankRow(row []Score, projects []models.Project) []int {
	order := make([]int, len(projects))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := order[a], order[b]
		if row[pa].Global != row[pb].Global {
			return row[pa].Global > row[pb].Global
		}
		return projects[pa].ID < projects[pb].ID
	})
	return order
}
