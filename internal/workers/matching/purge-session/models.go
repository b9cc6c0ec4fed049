// internal/workers/matching/purge-session/models.go
package purgesession

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	Success          bool   `json:"success"`
	SessionID        string `json:"sessionId"`
	RecordsDeleted   int64  `json:"recordsDeleted"`
	DocumentsDeleted int64  `json:"documentsDeleted"`
}
