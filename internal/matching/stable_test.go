// internal/matching/stable_test.go
package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/models"
)

func newStableFixture(students []models.Student, projects []models.Project) (*StableStrategy, *fakeResults) {
	results := &fakeResults{}
	strategy := NewStableStrategy(
		&fakeStudents{students: students},
		&fakeProjects{projects: projects},
		results,
		testOptions(),
		logger.NewNopLogger(),
	)
	return strategy, results
}

func TestStable_SingleSeatGoesToHigherScore(t *testing.T) {
	// Student 1 scores 0.8 and student 2 scores 0.6 against project 10,
	// which has one seat. The loser falls through to project 11.
	students := []models.Student{
		{ID: 1, Skills: []int64{1, 2, 3, 4}},
		{ID: 2, Skills: []int64{1, 2, 3}},
	}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1, 2, 3, 4, 5}, MaxStudents: 1},
		{ID: 11, RequiredSkills: []int64{9}, MaxStudents: 1},
	}
	strategy, results := newStableFixture(students, projects)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ResultsComputed)

	byProject := map[int64]models.MatchingResult{}
	for _, r := range results.saved {
		byProject[r.ProjectID] = r
	}
	require.Len(t, byProject, 2)
	assert.Equal(t, int64(1), byProject[10].StudentID)
	assert.InDelta(t, 0.8, byProject[10].GlobalScore, 1e-9)
	assert.Equal(t, int64(2), byProject[11].StudentID)
	assert.Equal(t, string(models.AlgorithmStable), byProject[10].AlgorithmUsed)
}

func TestStable_RosterNeverExceedsCapacity(t *testing.T) {
	students := []models.Student{
		{ID: 1, Skills: []int64{1}},
		{ID: 2, Skills: []int64{1}},
		{ID: 3, Skills: []int64{1}},
		{ID: 4, Skills: []int64{1}},
		{ID: 5, Skills: []int64{1}},
	}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1}, MaxStudents: 2},
		{ID: 11, RequiredSkills: []int64{1}, MaxStudents: 2},
	}
	strategy, results := newStableFixture(students, projects)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)

	perProject := map[int64]int{}
	for _, r := range results.saved {
		perProject[r.ProjectID]++
	}
	for id, count := range perProject {
		assert.LessOrEqual(t, count, 2, "project %d over capacity", id)
	}
	// Four seats total, five students: exactly one stays unmatched.
	assert.Len(t, results.saved, 4)
}

func TestStable_EqualScoreDoesNotDisplace(t *testing.T) {
	// Both students score 1.0 against the single seat; the first one seated
	// (lowest id, by tie-break) keeps it.
	students := []models.Student{
		{ID: 1, Skills: []int64{1}},
		{ID: 2, Skills: []int64{1}},
	}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1}, MaxStudents: 1},
	}
	strategy, results := newStableFixture(students, projects)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)

	require.Len(t, results.saved, 1)
	assert.Equal(t, int64(1), results.saved[0].StudentID)
}

func TestStable_EvictionSeatsBetterLateProposer(t *testing.T) {
	// Student 3 scores highest but proposes last; it must evict the current
	// worst occupant, who then lands on its next choice.
	students := []models.Student{
		{ID: 1, Skills: []int64{1, 2}},       // 0.5 on project 10
		{ID: 2, Skills: []int64{1, 2, 3}},    // 0.75 on project 10
		{ID: 3, Skills: []int64{1, 2, 3, 4}}, // 1.0 on project 10
	}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1, 2, 3, 4}, MaxStudents: 2},
		{ID: 11, RequiredSkills: []int64{9}, MaxStudents: 3},
	}
	strategy, results := newStableFixture(students, projects)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)

	seated := map[int64][]int64{}
	for _, r := range results.saved {
		seated[r.ProjectID] = append(seated[r.ProjectID], r.StudentID)
	}
	assert.ElementsMatch(t, []int64{2, 3}, seated[10])
	assert.ElementsMatch(t, []int64{1}, seated[11])
}

func TestStable_RanksFollowRosterOrder(t *testing.T) {
	students := []models.Student{
		{ID: 1, Skills: []int64{1, 2}},
		{ID: 2, Skills: []int64{1, 2, 3, 4}},
	}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1, 2, 3, 4}, MaxStudents: 2},
	}
	strategy, results := newStableFixture(students, projects)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)

	require.Len(t, results.saved, 2)
	for _, r := range results.saved {
		if r.StudentID == 2 {
			assert.Equal(t, 1, r.RecommendationRank) // 1.0 beats 0.5
		} else {
			assert.Equal(t, 2, r.RecommendationRank)
		}
	}
}

func TestStable_UnderCapacityProducesWarning(t *testing.T) {
	students := []models.Student{{ID: 1, Skills: []int64{1}}}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1}, MinStudents: 3, MaxStudents: 5},
	}
	strategy, _ := newStableFixture(students, projects)

	res, err := strategy.Execute(context.Background(), models.RunRequest{Scope: models.ScopeAll})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "under minimum capacity")
	assert.Contains(t, res.Warnings[0], "1/3")
}

func TestStable_GlobalRecomputeWipesStore(t *testing.T) {
	strategy, results := newStableFixture(
		[]models.Student{{ID: 1}},
		[]models.Project{{ID: 10, MaxStudents: 1}},
	)

	res, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:     models.ScopeAll,
		Recompute: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, results.deleteAllCalls)
	assert.Empty(t, results.deletedStudents)
	assert.Contains(t, res.Warnings, "recompute wiped all stored results")
}

func TestStable_SingleStudentRecomputeDeletesOnlyThatStudent(t *testing.T) {
	strategy, results := newStableFixture(
		[]models.Student{{ID: 7}},
		[]models.Project{{ID: 10, MaxStudents: 1}},
	)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:     models.ScopeOne,
		StudentID: 7,
		Recompute: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, results.deletedStudents)
	assert.Zero(t, results.deleteAllCalls)
}

func TestStable_LocalStability(t *testing.T) {
	// For every full project, no unmatched-or-elsewhere student strictly
	// prefers it while scoring higher than its worst occupant.
	students := []models.Student{
		{ID: 1, Skills: []int64{1, 2, 3}},
		{ID: 2, Skills: []int64{1, 2}},
		{ID: 3, Skills: []int64{1}},
		{ID: 4, Skills: []int64{2, 3}},
	}
	projects := []models.Project{
		{ID: 10, RequiredSkills: []int64{1, 2, 3}, MaxStudents: 1},
		{ID: 11, RequiredSkills: []int64{1, 2}, MaxStudents: 1},
		{ID: 12, RequiredSkills: []int64{3}, MaxStudents: 1},
	}
	strategy, results := newStableFixture(students, projects)

	_, err := strategy.Execute(context.Background(), models.RunRequest{
		Scope:   models.ScopeAll,
		Persist: true,
		Weights: skillsOnlyWeights(),
	})
	require.NoError(t, err)

	weights, _ := WeightsFromMap(skillsOnlyWeights(), DefaultWeights()).Normalize()

	seatedScore := map[int64]float64{} // projectID -> worst seated score
	seatedBy := map[int64]int64{}      // studentID -> projectID
	for _, r := range results.saved {
		if cur, ok := seatedScore[r.ProjectID]; !ok || r.GlobalScore < cur {
			seatedScore[r.ProjectID] = r.GlobalScore
		}
		seatedBy[r.StudentID] = r.ProjectID
	}

	for _, s := range students {
		for _, p := range projects {
			if seatedBy[s.ID] == p.ID {
				continue
			}
			score := ScorePair(s, p, weights).Global
			worst, full := seatedScore[p.ID]
			if !full || score <= worst {
				continue
			}
			// p would take s over its worst occupant, so s must not
			// prefer p over its own seat.
			ownScore := 0.0
			if own, ok := seatedBy[s.ID]; ok {
				ownScore = ScorePair(s, projectByID(projects, own), weights).Global
			}
			assert.GreaterOrEqual(t, ownScore, score,
				"student %d and project %d form a blocking pair", s.ID, p.ID)
		}
	}
}

func projectByID(projects []models.Project, id int64) models.Project {
	for _, p := range projects {
		if p.ID == id {
			return p
		}
	}
	return models.Project{}
}
