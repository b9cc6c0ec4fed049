// internal/workers/matching/index-results/handler.go
package indexresults

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
	"bestchoice-workers/internal/models"
)

const (
	TaskType = "index-results"
)

// ResultLister reads one session's stored results.
type ResultLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.MatchingResult, error)
}

type Handler struct {
	config  *Config
	client  *elasticsearch.Client
	results ResultLister
	logger  logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, results ResultLister, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		client:  client,
		results: results,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

	results, err := h.results.ListBySession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, apperrors.NewInvalidArgument("session %s has no results", input.SessionID)
	}

	body, err := buildBulkBody(h.config.IndexName, results, time.Now().UTC())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexingFailed, "failed to encode bulk request", false, err)
	}

	res, err := h.client.Bulk(strings.NewReader(body), h.client.Bulk.WithContext(ctx))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexingFailed, "bulk request failed", true, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexingFailed,
			fmt.Sprintf("bulk request rejected: %s", res.Status()), true, nil)
	}

	var bulkRes bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexingFailed, "failed to decode bulk response", true, err)
	}
	if bulkRes.Errors {
		return nil, apperrors.Wrap(apperrors.ErrCodeIndexingFailed,
			fmt.Sprintf("bulk indexing reported item failures: %s", bulkRes.firstError()), true, nil)
	}

	h.logger.Info("session indexed", map[string]interface{}{
		"sessionId": input.SessionID,
		"documents": len(results),
		"index":     h.config.IndexName,
	})

	return &Output{
		Success:          true,
		SessionID:        input.SessionID,
		DocumentsIndexed: len(results),
	}, nil
}

// Execute runs the indexing without the Camunda plumbing; used by tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// buildBulkBody renders the NDJSON bulk payload. Document ids are derived
// from the record identity so re-indexing a session overwrites instead of
// duplicating.
func buildBulkBody(index string, results []models.MatchingResult, now time.Time) (string, error) {
	var body strings.Builder
	for _, r := range results {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":"%s-%d-%d-%s"}}`,
			index, r.SessionID, r.StudentID, r.ProjectID, r.AlgorithmUsed)
		body.WriteString(meta)
		body.WriteByte('\n')

		doc, err := json.Marshal(toDocument(r, now))
		if err != nil {
			return "", err
		}
		body.Write(doc)
		body.WriteByte('\n')
	}
	return body.String(), nil
}

type bulkResponse struct {
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

type bulkItemResult struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (b bulkResponse) firstError() string {
	for _, item := range b.Items {
		for _, op := range item {
			if op.Error != nil {
				return fmt.Sprintf("%s: %s", op.Error.Type, op.Error.Reason)
			}
		}
	}
	return "unknown item error"
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
