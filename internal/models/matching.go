// internal/models/matching.go
package models

import "time"

// Algorithm identifies a matching strategy.
type Algorithm string

const (
	AlgorithmWeighted Algorithm = "WEIGHTED"
	AlgorithmStable   Algorithm = "STABLE"
	AlgorithmHybrid   Algorithm = "HYBRID"
)

// Scope selects which students a run processes.
type Scope string

const (
	ScopeAll Scope = "ALL"
	ScopeOne Scope = "ONE"
)

// RunRequest are the parameters of one matching run.
//
// SessionID is normally left empty and minted by the strategy; the hybrid
// orchestrator sets it so both sub-runs share one session.
type RunRequest struct {
	Algorithm Algorithm          `json:"algorithm"`
	Scope     Scope              `json:"scope"`
	StudentID int64              `json:"studentId,omitempty"`
	Recompute bool               `json:"recompute"`
	Persist   bool               `json:"persist"`
	Threshold *float64           `json:"threshold,omitempty"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	SessionID string             `json:"sessionId,omitempty"`
}

// RunResult are the statistics returned to the caller of one matching run.
type RunResult struct {
	SessionID          string    `json:"sessionId"`
	AlgorithmUsed      Algorithm `json:"algorithmUsed"`
	StudentsProcessed  int       `json:"studentsProcessed"`
	ProjectsConsidered int       `json:"projectsConsidered"`
	ResultsComputed    int       `json:"resultsComputed"`
	ResultsSaved       int       `json:"resultsSaved"`
	Recompute          bool      `json:"recompute"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt"`
	Warnings           []string  `json:"warnings"`
}

// MatchingResult is one persisted (student, project) record of a session.
// It is immutable once written; reruns delete and recreate instead of updating.
type MatchingResult struct {
	ID                 int64     `json:"id,omitempty"`
	SessionID          string    `json:"sessionId"`
	StudentID          int64     `json:"studentId"`
	ProjectID          int64     `json:"projectId"`
	GlobalScore        float64   `json:"globalScore"`
	SkillsScore        float64   `json:"skillsScore"`
	InterestsScore     float64   `json:"interestsScore"`
	WorkModeScore      float64   `json:"workModeScore"`
	SkillsWeight       float64   `json:"skillsWeight"`
	InterestsWeight    float64   `json:"interestsWeight"`
	WorkModeWeight     float64   `json:"workModeWeight"`
	ThresholdUsed      float64   `json:"thresholdUsed"`
	AboveThreshold     bool      `json:"aboveThreshold"`
	RecommendationRank int       `json:"recommendationRank,omitempty"`
	AlgorithmUsed      string    `json:"algorithmUsed"`
	CalculatedAt       time.Time `json:"calculatedAt,omitempty"`
}
