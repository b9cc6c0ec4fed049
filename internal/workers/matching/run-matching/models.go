// internal/workers/matching/run-matching/models.go
package runmatching

import "bestchoice-workers/internal/models"

type Input struct {
	Algorithm string             `json:"algorithm"`
	Scope     string             `json:"scope,omitempty"`
	StudentID int64              `json:"studentId,omitempty"`
	Recompute bool               `json:"recompute,omitempty"`
	Persist   bool               `json:"persist,omitempty"`
	Threshold *float64           `json:"threshold,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
}

// toRequest translates process variables into an engine request. An absent
// scope means a full run.
func (in *Input) toRequest() models.RunRequest {
	scope := models.Scope(in.Scope)
	if scope == "" {
		scope = models.ScopeAll
	}
	return models.RunRequest{
		Algorithm: models.Algorithm(in.Algorithm),
		Scope:     scope,
		StudentID: in.StudentID,
		Recompute: in.Recompute,
		Persist:   in.Persist,
		Threshold: in.Threshold,
		Weights:   in.Weights,
	}
}

type Output struct {
	models.RunResult
	Success bool `json:"success"`
}
