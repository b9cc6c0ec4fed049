// internal/workers/matching/notify-results/models.go
package notifyresults

type Input struct {
	SessionID string `json:"sessionId"`
	// TopRecommendations limits how many projects one student's email lists.
	TopRecommendations int `json:"topRecommendations,omitempty"`
}

type Output struct {
	Success         bool   `json:"success"`
	SessionID       string `json:"sessionId"`
	EmailsSent      int    `json:"emailsSent"`
	EmailsSkipped   int    `json:"emailsSkipped"`
	DigestPublished bool   `json:"digestPublished"`
}
