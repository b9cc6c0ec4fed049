// internal/workers/matching/index-results/models.go
package indexresults

import (
	"time"

	"bestchoice-workers/internal/models"
)

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	Success          bool   `json:"success"`
	SessionID        string `json:"sessionId"`
	DocumentsIndexed int    `json:"documentsIndexed"`
}

// document is the denormalized shape stored in the search index.
type document struct {
	SessionID          string    `json:"sessionId"`
	StudentID          int64     `json:"studentId"`
	ProjectID          int64     `json:"projectId"`
	GlobalScore        float64   `json:"globalScore"`
	SkillsScore        float64   `json:"skillsScore"`
	InterestsScore     float64   `json:"interestsScore"`
	WorkModeScore      float64   `json:"workModeScore"`
	AboveThreshold     bool      `json:"aboveThreshold"`
	RecommendationRank int       `json:"recommendationRank"`
	AlgorithmUsed      string    `json:"algorithmUsed"`
	IndexedAt          time.Time `json:"indexedAt"`
}

func toDocument(r models.MatchingResult, now time.Time) document {
	return document{
		SessionID:          r.SessionID,
		StudentID:          r.StudentID,
		ProjectID:          r.ProjectID,
		GlobalScore:        r.GlobalScore,
		SkillsScore:        r.SkillsScore,
		InterestsScore:     r.InterestsScore,
		WorkModeScore:      r.WorkModeScore,
		AboveThreshold:     r.AboveThreshold,
		RecommendationRank: r.RecommendationRank,
		AlgorithmUsed:      r.AlgorithmUsed,
		IndexedAt:          now,
	}
}
