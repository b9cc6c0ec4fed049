// internal/models/project.go
package models

// Project is the read-only opportunity snapshot the matching engine consumes.
// RequiredSkills and Keywords hold resolved catalog ids. MaxStudents is the
// roster capacity used by stable matching; MinStudents is reporting-only.
type Project struct {
	ID             int64    `json:"id"`
	RequiredSkills []int64  `json:"requiredSkills"`
	Keywords       []int64  `json:"keywords"`
	WorkMode       WorkMode `json:"workMode,omitempty"`
	MinStudents    int      `json:"minStudents"`
	MaxStudents    int      `json:"maxStudents"`
}

// Capacity returns the usable roster capacity, never below one seat.
func (p Project) Capacity() int {
	if p.MaxStudents < 1 {
		return 1
	}
	return p.MaxStudents
}
