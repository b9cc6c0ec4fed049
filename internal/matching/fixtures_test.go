// internal/matching/fixtures_test.go
package matching

import (
	"context"
	"sync"

	"bestchoice-workers/internal/models"
)

type fakeStudents struct {
	students []models.Student
}

func (f *fakeStudents) ListStudents(_ context.Context) ([]models.Student, error) {
	return f.students, nil
}

func (f *fakeStudents) GetStudent(_ context.Context, id int64) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

type fakeProjects struct {
	projects []models.Project
}

func (f *fakeProjects) ListProjects(_ context.Context) ([]models.Project, error) {
	return f.projects, nil
}

type fakeResults struct {
	mu              sync.Mutex
	saved           []models.MatchingResult
	deletedStudents []int64
	deleteAllCalls  int
}

func (f *fakeResults) SaveResults(_ context.Context, results []models.MatchingResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, results...)
	return nil
}

func (f *fakeResults) DeleteByStudent(_ context.Context, studentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedStudents = append(f.deletedStudents, studentID)
	return nil
}

func (f *fakeResults) DeleteAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteAllCalls++
	f.saved = nil
	return nil
}

// skillsOnlyWeights makes the global score equal the skills sub-score, which
// keeps expected values in tests easy to read.
func skillsOnlyWeights() map[string]float64 {
	return map[string]float64{"skills": 1, "interests": 0, "workMode": 0}
}

func testOptions() Options {
	return Options{
		DefaultThreshold: 0.50,
		DefaultWeights:   DefaultWeights(),
		ScoreWorkers:     2,
	}
}
