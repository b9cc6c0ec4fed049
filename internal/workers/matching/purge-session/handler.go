// internal/workers/matching/purge-session/handler.go
package purgesession

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/common/metrics"
)

const (
	TaskType = "purge-session"
)

// SessionPurger removes one session's records from primary storage.
type SessionPurger interface {
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type Handler struct {
	config *Config
	purger SessionPurger
	// client may be nil when no search index is deployed.
	client *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, purger SessionPurger, client *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		purger: purger,
		client: client,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, &apperrors.BPMNError{
			Code:    "PARSE_ERROR",
			Message: fmt.Sprintf("parse input: %v", err),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, apperrors.ToBPMN(err, h.config.DefaultRetries))
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.SessionID == "" {
		return nil, apperrors.NewInvalidArgument("sessionId is required")
	}

	deleted, err := h.purger.DeleteBySession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Success:        true,
		SessionID:      input.SessionID,
		RecordsDeleted: deleted,
	}

	if h.client != nil {
		docs, err := h.purgeIndex(ctx, input.SessionID)
		if err != nil {
			return nil, err
		}
		output.DocumentsDeleted = docs
	}

	h.logger.Info("session purged", map[string]interface{}{
		"sessionId":        input.SessionID,
		"recordsDeleted":   output.RecordsDeleted,
		"documentsDeleted": output.DocumentsDeleted,
	})

	return output, nil
}

// Execute runs the purge without the Camunda plumbing; used by tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) purgeIndex(ctx context.Context, sessionID string) (int64, error) {
	query := fmt.Sprintf(`{"query":{"term":{"sessionId":%q}}}`, sessionID)

	res, err := h.client.DeleteByQuery(
		[]string{h.config.IndexName},
		strings.NewReader(query),
		h.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCodeIndexingFailed, "delete by query failed", true, err)
	}
	defer res.Body.Close()

	// A missing index is not an error: nothing was ever indexed.
	if res.StatusCode == 404 {
		return 0, nil
	}
	if res.IsError() {
		return 0, apperrors.Wrap(apperrors.ErrCodeIndexingFailed,
			fmt.Sprintf("delete by query rejected: %s", res.Status()), true, nil)
	}

	var body struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrCodeIndexingFailed, "failed to decode delete response", true, err)
	}
	return body.Deleted, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, bpmnErr *apperrors.BPMNError) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()

	if bpmnErr.Retryable {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(bpmnErr.Retries).
			ErrorMessage(bpmnErr.Message).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{"error": err})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"error": err})
	}
}
