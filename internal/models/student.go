// internal/models/student.go
package models

// WorkMode is the kind of work a student prefers or a project mainly requires.
// An empty value means "not specified".
type WorkMode string

const (
	WorkModeDevelopment   WorkMode = "DEVELOPMENT"
	WorkModeResearch      WorkMode = "RESEARCH"
	WorkModeAnalysis      WorkMode = "ANALYSIS"
	WorkModeTechWatch     WorkMode = "TECH_WATCH"
	WorkModeDesign        WorkMode = "DESIGN"
	WorkModeDocumentation WorkMode = "DOCUMENTATION"
	WorkModeTesting       WorkMode = "TESTING"
	WorkModeMixed         WorkMode = "MIXED"
)

// IsSet reports whether a work mode was actually specified.
func (w WorkMode) IsSet() bool {
	return w != ""
}

// Student is the read-only profile snapshot the matching engine consumes.
// Skills and Interests hold resolved catalog ids, not display names.
type Student struct {
	ID                int64    `json:"id"`
	Skills            []int64  `json:"skills"`
	Interests         []int64  `json:"interests"`
	PreferredWorkMode WorkMode `json:"preferredWorkMode,omitempty"`
}
