// internal/matching/strategy.go

// Package matching implements the compatibility scoring engine and the
// matching strategies built on top of it: weighted ranking, capacitated
// deferred acceptance, and the hybrid run combining both.
package matching

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/models"
)

// StudentSource provides read-only student snapshots.
type StudentSource interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	// GetStudent returns (nil, nil) when the student does not exist.
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
}

// ProjectSource provides read-only project snapshots.
type ProjectSource interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
}

// ResultSink receives computed matching results.
type ResultSink interface {
	SaveResults(ctx context.Context, results []models.MatchingResult) error
	DeleteByStudent(ctx context.Context, studentID int64) error
	DeleteAll(ctx context.Context) error
}

// Strategy is one matching algorithm.
type Strategy interface {
	Algorithm() models.Algorithm
	Execute(ctx context.Context, req models.RunRequest) (*models.RunResult, error)
}

// Options are engine-level defaults shared by all strategies.
type Options struct {
	DefaultThreshold float64
	DefaultWeights   Weights
	// ScoreWorkers bounds the parallelism of score matrix construction.
	ScoreWorkers int
}

// DefaultOptions mirrors the configured defaults of the original platform.
func DefaultOptions() Options {
	return Options{
		DefaultThreshold: 0.50,
		DefaultWeights:   DefaultWeights(),
		ScoreWorkers:     runtime.NumCPU(),
	}
}

func (o Options) scoreWorkers() int {
	if o.ScoreWorkers < 1 {
		return 1
	}
	return o.ScoreWorkers
}

// sessionIDFor keeps an injected session id (hybrid runs) or mints a fresh one.
func sessionIDFor(req models.RunRequest) string {
	if req.SessionID != "" {
		return req.SessionID
	}
	return "SESSION-" + uuid.NewString()[:8]
}

func thresholdFor(req models.RunRequest, def float64) float64 {
	if req.Threshold != nil {
		return *req.Threshold
	}
	return def
}

// resolveScope loads the students a run processes.
func resolveScope(ctx context.Context, req models.RunRequest, students StudentSource) ([]models.Student, error) {
	if req.Scope == models.ScopeOne {
		if req.StudentID == 0 {
			return nil, apperrors.NewInvalidArgument("studentId is required when scope=ONE")
		}
		s, err := students.GetStudent(ctx, req.StudentID)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, apperrors.NewStudentNotFound(req.StudentID)
		}
		return []models.Student{*s}, nil
	}
	return students.ListStudents(ctx)
}

// buildScoreMatrix scores every (student, project) pair. Rows are index
// aligned with students, columns with projects. Pair scoring is pure, so rows
// are computed on a bounded worker pool.
func buildScoreMatrix(ctx context.Context, students []models.Student, projects []models.Project, w Weights, workers int) ([][]Score, error) {
	matrix := make([][]Score, len(students))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range students {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			row := make([]Score, len(projects))
			for j := range projects {
				row[j] = ScorePair(students[i], projects[j], w)
			}
			matrix[i] = row
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// zeroWeightsWarning is the single warning recorded when the input weight sum
// was not positive.
const zeroWeightsWarning = "weights summed to 0, defaults 0.50/0.30/0.20 applied"

func underCapacityWarning(projectID int64, seated, min int) string {
	return fmt.Sprintf("project %d is under minimum capacity (%d/%d)", projectID, seated, min)
}
