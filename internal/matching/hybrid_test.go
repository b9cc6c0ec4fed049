// internal/matching/hybrid_test.go
package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/models"
)

func newHybridFixture(students []models.Student, projects []models.Project) (*HybridStrategy, *fakeResults) {
	studentSrc := &fakeStudents{students: students}
	projectSrc := &fakeProjects{projects: projects}
	results := &fakeResults{}
	log := logger.NewNopLogger()

	weighted := NewWeightedStrategy(studentSrc, projectSrc, results, testOptions(), log)
	stable := NewStableStrategy(studentSrc, projectSrc, results, testOptions(), log)
	return NewHybridStrategy(weighted, stable, log), results
}

func TestHybrid_BothPassesShareOneSession(t *testing.T) {
	strategy, results := newHybridFixture(
		[]models.Student{{ID: 1, Skills: []int64{1}}},
		[]models.Project{{ID: 10, RequiredSkills: []int64{1}, MaxStudents: 1}},
	)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)

	require.Len(t, results.saved, 2)
	algorithms := map[string]bool{}
	for _, r := range results.saved {
		assert.Equal(t, res.SessionID, r.SessionID)
		algorithms[r.AlgorithmUsed] = true
	}
	assert.True(t, algorithms[string(models.AlgorithmWeighted)])
	assert.True(t, algorithms[string(models.AlgorithmStable)])
}

func TestHybrid_KeepsInjectedSession(t *testing.T) {
	strategy, results := newHybridFixture(
		[]models.Student{{ID: 1, Skills: []int64{1}}},
		[]models.Project{{ID: 10, RequiredSkills: []int64{1}, MaxStudents: 1}},
	)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:     models.ScopeAll,
		Persist:   true,
		SessionID: "SESSION-abcd1234",
		Weights:   skillsOnlyWeights(),
	})
	require.NoError(t, err)

	assert.Equal(t, "SESSION-abcd1234", res.SessionID)
	for _, r := range results.saved {
		assert.Equal(t, "SESSION-abcd1234", r.SessionID)
	}
}

func TestHybrid_MergesRunStats(t *testing.T) {
	// Two students, two projects: the weighted pass computes every pair
	// while the stable pass emits one record per seated student.
	strategy, _ := newHybridFixture(
		[]models.Student{
			{ID: 1, Skills: []int64{1}},
			{ID: 2, Skills: []int64{1}},
		},
		[]models.Project{
			{ID: 10, RequiredSkills: []int64{1}, MaxStudents: 1},
			{ID: 11, RequiredSkills: []int64{1}, MaxStudents: 1},
		},
	)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)

	assert.Equal(t, models.AlgorithmHybrid, res.AlgorithmUsed)
	assert.Equal(t, 2, res.StudentsProcessed)
	assert.Equal(t, 2, res.ProjectsConsidered)
	assert.Equal(t, 4+2, res.ResultsComputed)
	assert.Equal(t, 4+2, res.ResultsSaved)
}

func TestHybrid_RecomputeRunsOnceNotTwice(t *testing.T) {
	// The weighted pass owns the recompute delete; a second delete in the
	// stable pass would erase the weighted output written moments before.
	strategy, results := newHybridFixture(
		[]models.Student{{ID: 1, Skills: []int64{1}}},
		[]models.Project{{ID: 10, RequiredSkills: []int64{1}, MaxStudents: 1}},
	)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:     models.ScopeAll,
		Recompute: true,
		Persist:   true,
		Weights:   skillsOnlyWeights(),
	})
	require.NoError(t, err)

	assert.True(t, res.Recompute)
	assert.Zero(t, results.deleteAllCalls)
	assert.Len(t, results.saved, 2)
}

func TestHybrid_ConcatenatesWarnings(t *testing.T) {
	strategy, _ := newHybridFixture(
		[]models.Student{{ID: 1, Skills: []int64{1}}},
		[]models.Project{
			{ID: 10, RequiredSkills: []int64{1}, MinStudents: 2, MaxStudents: 3},
		},
	)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Weights: map[string]float64{"skills": 0, "interests": 0, "workMode": 0},
	})
	require.NoError(t, err)

	// Both passes flag the zero weights, the stable pass adds the
	// under-capacity warning.
	zeroCount := 0
	capacityCount := 0
	for _, w := range res.Warnings {
		switch {
		case w == zeroWeightsWarning:
			zeroCount++
		case w == underCapacityWarning(10, 1, 2):
			capacityCount++
		}
	}
	assert.Equal(t, 2, zeroCount)
	assert.Equal(t, 1, capacityCount)
}

func TestHybrid_StopsWhenFirstPassFails(t *testing.T) {
	strategy, results := newHybridFixture(
		[]models.Student{{ID: 1}},
		[]models.Project{{ID: 10, MaxStudents: 1}},
	)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope: models.ScopeOne, // no StudentID
	})
	require.Error(t, err)
	assert.Empty(t, results.saved)
}
