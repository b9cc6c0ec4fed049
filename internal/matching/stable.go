// internal/matching/stable.go
package matching

import (
	"context"
	"sort"
	"time"

	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/common/metrics"
	"bestchoice-workers/internal/models"
)

// StableStrategy runs capacitated deferred acceptance over the pair scores.
// The same score matrix serves as the students' preference order over projects
// and as each project's order over students; projects have no independent
// preference model. The result is one assignment set, not a ranked list.
type StableStrategy struct {
	students StudentSource
	projects ProjectSource
	results  ResultSink
	opts     Options
	logger   logger.Logger
}

func NewStableStrategy(students StudentSource, projects ProjectSource, results ResultSink, opts Options, log logger.Logger) *StableStrategy {
	return &StableStrategy{
		students: students,
		projects: projects,
		results:  results,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"algorithm": models.AlgorithmStable}),
	}
}

func (s *StableStrategy) Algorithm() models.Algorithm {
	return models.AlgorithmStable
}

func (s *StableStrategy) Execute(ctx context.Context, req models.RunRequest) (*models.RunResult, error) {
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

	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	if req.Recompute {
		if req.Scope == models.ScopeOne {
			if err := s.results.DeleteByStudent(ctx, req.StudentID); err != nil {
				return nil, err
			}
		} else {
			// Coarse reset inherited from the first version of the
			// platform: a global stable recompute wipes every stored
			// result, all sessions and algorithms included.
			if err := s.results.DeleteAll(ctx); err != nil {
				return nil, err
			}
			warnings = append(warnings, "recompute wiped all stored results")
		}
	}

	matrix, err := buildScoreMatrix(ctx, students, projects, weights, s.opts.scoreWorkers())
	if err != nil {
		return nil, err
	}

	rosters := runDeferredAcceptance(students, projects, matrix)

	// Every roster entry becomes one record; the rank is the student's
	// position within that project's roster, best first.
	records := make([]models.MatchingResult, 0, len(students))
	for pi, roster := range rosters {
		sortRoster(roster, students, matrix, pi)

		for pos, si := range roster {
			score := matrix[si][pi]
			records = append(records, models.MatchingResult{
				SessionID:          sessionID,
				StudentID:          students[si].ID,
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
				RecommendationRank: pos + 1,
				AlgorithmUsed:      string(models.AlgorithmStable),
			})
		}

		if min := projects[pi].MinStudents; min > 0 && len(roster) < min {
			warnings = append(warnings, underCapacityWarning(projects[pi].ID, len(roster), min))
		}
	}

	resultsSaved := 0
	if req.Persist {
		if err := s.results.SaveResults(ctx, records); err != nil {
			return nil, err
		}
		resultsSaved = len(records)
	}

	metrics.MatchingPairsScored.WithLabelValues(string(models.AlgorithmStable)).Add(float64(len(students) * len(projects)))
	metrics.MatchingResultsPersisted.WithLabelValues(string(models.AlgorithmStable)).Add(float64(resultsSaved))

	s.logger.Info("stable run finished", map[string]interface{}{
		"sessionId":       sessionID,
		"students":        len(students),
		"projects":        len(projects),
		"resultsComputed": len(records),
		"resultsSaved":    resultsSaved,
	})

	return &models.RunResult{
		SessionID:          sessionID,
		AlgorithmUsed:      models.AlgorithmStable,
		StudentsProcessed:  len(students),
		ProjectsConsidered: len(projects),
		ResultsComputed:    len(records),
		ResultsSaved:       resultsSaved,
		Recompute:          req.Recompute,
		StartedAt:          start,
		FinishedAt:         time.Now().UTC(),
		Warnings:           warnings,
	}, nil
}

// runDeferredAcceptance seats students into project rosters. Returned rosters
// are indexed like projects and hold student indexes.
//
// Each student proposes down its preference list; a full roster only gives up
// its worst occupant for a strictly better score, so equal scores never
// displace and the loop cannot oscillate. Every proposal pointer only
// advances, which bounds the loop by students × projects.
func runDeferredAcceptance(students []models.Student, projects []models.Project, matrix [][]Score) [][]int {
	prefs := make([][]int, len(students))
	for si := range students {
		prefs[si] = preferenceOrder(matrix[si], projects)
	}

	rosters := make([][]int, len(projects))
	nextProposal := make([]int, len(students))

	free := make([]int, len(students))
	for i := range free {
		free[i] = i
	}

	for len(free) > 0 {
		si := free[0]
		free = free[1:]

		// Exhausted its list: permanently unmatched.
		if nextProposal[si] >= len(prefs[si]) {
			continue
		}

		pi := prefs[si][nextProposal[si]]
		nextProposal[si]++

		roster := rosters[pi]
		if len(roster) < projects[pi].Capacity() {
			rosters[pi] = append(roster, si)
			continue
		}

		worst := worstOccupant(roster, matrix, pi, students)
		if matrix[si][pi].Global > matrix[worst][pi].Global {
			rosters[pi] = replaceOccupant(roster, worst, si)
			free = append(free, worst)
		} else {
			free = append(free, si)
		}
	}

	return rosters
}

// preferenceOrder sorts project indexes by descending score for one student,
// ties broken by ascending project id.
func preferenceOrder(row []Score, projects []models.Project) []int {
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

// worstOccupant picks the lowest-scoring roster member for project pi; equal
// scores resolve to the higher student id so eviction order is deterministic.
func worstOccupant(roster []int, matrix [][]Score, pi int, students []models.Student) int {
	worst := roster[0]
	for _, si := range roster[1:] {
		ws, ss := matrix[worst][pi].Global, matrix[si][pi].Global
		if ss < ws || (ss == ws && students[si].ID > students[worst].ID) {
			worst = si
		}
	}
	return worst
}

func replaceOccupant(roster []int, old, new int) []int {
	for i, si := range roster {
		if si == old {
			roster[i] = new
			break
		}
	}
	return roster
}

// sortRoster orders a final roster by descending score, ties by ascending
// student id.
func sortRoster(roster []int, students []models.Student, matrix [][]Score, pi int) {
	sort.Slice(roster, func(a, b int) bool {
		sa, sb := roster[a], roster[b]
		if matrix[sa][pi].Global != matrix[sb][pi].Global {
			return matrix[sa][pi].Global > matrix[sb][pi].Global
		}
		return students[sa].ID < students[sb].ID
	})
}
