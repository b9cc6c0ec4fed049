// internal/matching/score.go
package matching

import (
	"math"

	"bestchoice-workers/internal/models"
)

// neutralScore is used when one side carries no signal: a project without
// required skills, or a work-mode comparison with missing or mismatched
// preferences. Absence of a requirement is a partial match, not a perfect one.
const neutralScore = 0.50

// Score is the compatibility of one (student, project) pair. All components
// lie in [0,1]; Global is the weighted combination.
type Score struct {
	Skills    float64
	Interests float64
	WorkMode  float64
	Global    float64
}

// ScorePair computes the compatibility score for one pair. Pure and
// deterministic; safe to call concurrently.
func ScorePair(s models.Student, p models.Project, w Weights) Score {
	skills := overlapScore(s.Skills, p.RequiredSkills)
	interests := overlapScore(s.Interests, p.Keywords)
	workMode := workModeScore(s.PreferredWorkMode, p.WorkMode)

	global := clamp01(round6(
		skills*w.Skills + interests*w.Interests + workMode*w.WorkMode,
	))

	return Score{
		Skills:    skills,
		Interests: interests,
		WorkMode:  workMode,
		Global:    global,
	}
}

// overlapScore is |have ∩ wanted| / |wanted|. No requirement scores neutral;
// a requirement against an empty profile scores zero.
func overlapScore(have, wanted []int64) float64 {
	if len(wanted) == 0 {
		return neutralScore
	}
	if len(have) == 0 {
		return 0
	}

	set := make(map[int64]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}

	matched := 0
	for _, id := range wanted {
		if _, ok := set[id]; ok {
			matched++
		}
	}

	return clamp01(round6(float64(matched) / float64(len(wanted))))
}

func workModeScore(preferred, required models.WorkMode) float64 {
	if !preferred.IsSet() || !required.IsSet() {
		return neutralScore
	}
	if preferred == required {
		return 1
	}
	return neutralScore
}

// round6 rounds half-up to six fractional digits, the precision results are
// stored with.
func round6(v float64) float64 {
	return math.Floor(v*1e6+0.5) / 1e6
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
