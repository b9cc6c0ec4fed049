// internal/matching/weights.go
package matching

// Weights are the three scoring weights. They need not sum to 1; Normalize
// takes care of that at run start.
type Weights struct {
	Skills    float64
	Interests float64
	WorkMode  float64
}

// DefaultWeights is the fixed fallback vector.
func DefaultWeights() Weights {
	return Weights{Skills: 0.50, Interests: 0.30, WorkMode: 0.20}
}

// WeightsFromMap overlays explicit request entries onto the given defaults.
// Unknown keys are ignored.
func WeightsFromMap(m map[string]float64, defaults Weights) Weights {
	w := defaults
	if m == nil {
		return w
	}
	if v, ok := m["skills"]; ok {
		w.Skills = v
	}
	if v, ok := m["interests"]; ok {
		w.Interests = v
	}
	if v, ok := m["workMode"]; ok {
		w.WorkMode = v
	}
	return w
}

// Normalize scales the weights so they sum to 1, each rounded to six
// fractional digits. A non-positive sum substitutes the default vector and
// reports substituted=true; the division is never by zero.
func (w Weights) Normalize() (normalized Weights, substituted bool) {
	sum := w.Skills + w.Interests + w.WorkMode
	if sum <= 0 {
		w = DefaultWeights()
		sum = 1
		substituted = true
	}
	normalized = Weights{
		Skills:    round6(w.Skills / sum),
		Interests: round6(w.Interests / sum),
		WorkMode:  round6(w.WorkMode / sum),
	}
	return normalized, substituted
}
