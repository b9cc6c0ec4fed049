// internal/workers/matching/notify-results/handler.go
package notifyresults

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "bestchoice-workers/internal/common/errors"
	"bestchoice-workers/internal/common/logger"
	"bestchoice-workers/internal/common/metrics"
	"bestchoice-workers/internal/models"
)

const (
	TaskType = "notify-results"

	defaultTopRecommendations = 3
)

// ResultLister reads one session's stored results.
type ResultLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.MatchingResult, error)
}

// Directory resolves a student's contact address.
type Directory interface {
	EmailForStudent(ctx context.Context, id int64) (string, error)
}

// EmailSender is the SES surface the worker needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// TopicPublisher is the SNS surface the worker needs.
type TopicPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	results   ResultLister
	directory Directory
	emailer   EmailSender
	publisher TopicPublisher
	logger    logger.Logger
}

func NewHandler(config *Config, results ResultLister, directory Directory, emailer EmailSender, publisher TopicPublisher, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		results:   results,
		directory: directory,
		emailer:   emailer,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

	top := input.TopRecommendations
	if top <= 0 {
		top = defaultTopRecommendations
	}

	perStudent := groupByStudent(results, top)

	output := &Output{Success: true, SessionID: input.SessionID}
	for _, studentID := range sortedStudentIDs(perStudent) {
		recommendations := perStudent[studentID]

		email, err := h.directory.EmailForStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if email == "" {
			h.logger.Warn("student has no email on file, skipping", map[string]interface{}{
				"studentId": studentID,
			})
			output.EmailsSkipped++
			continue
		}

		if err := h.sendStudentEmail(ctx, email, recommendations); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeNotificationSendFailed,
				fmt.Sprintf("failed to email student %d", studentID), true, err)
		}
		output.EmailsSent++
	}

	if h.config.TopicARN != "" {
		if err := h.publishDigest(ctx, input.SessionID, results, output); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeNotificationSendFailed,
				"failed to publish session digest", true, err)
		}
		output.DigestPublished = true
	}

	h.logger.Info("notifications sent", map[string]interface{}{
		"sessionId":     input.SessionID,
		"emailsSent":    output.EmailsSent,
		"emailsSkipped": output.EmailsSkipped,
	})

	return output, nil
}

// Execute runs the notification without the Camunda plumbing; used by tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// groupByStudent keeps each student's best above-threshold recommendations,
// at most top entries, ordered by rank.
func groupByStudent(results []models.MatchingResult, top int) map[int64][]models.MatchingResult {
	grouped := map[int64][]models.MatchingResult{}
	for _, r := range results {
		if !r.AboveThreshold {
			continue
		}
		grouped[r.StudentID] = append(grouped[r.StudentID], r)
	}
	for id, list := range grouped {
		sort.Slice(list, func(a, b int) bool {
			return list[a].RecommendationRank < list[b].RecommendationRank
		})
		if len(list) > top {
			list = list[:top]
		}
		grouped[id] = list
	}
	return grouped
}

func sortedStudentIDs(grouped map[int64][]models.MatchingResult) []int64 {
	ids := make([]int64, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func (h *Handler) sendStudentEmail(ctx context.Context, to string, recommendations []models.MatchingResult) error {
	var body strings.Builder
	body.WriteString("Your project recommendations are ready:\n\n")
	for _, r := range recommendations {
		body.WriteString(fmt.Sprintf("  %d. Project %d (compatibility %.0f%%)\n",
			r.RecommendationRank, r.ProjectID, r.GlobalScore*100))
	}
	body.WriteString("\nLog in to review and confirm your choice.\n")

	_, err := h.emailer.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(h.config.FromAddress),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data: aws.String("Your project matching results"),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{
					Data: aws.String(body.String()),
				},
			},
		},
	})
	return err
}

func (h *Handler) publishDigest(ctx context.Context, sessionID string, results []models.MatchingResult, output *Output) error {
	digest := map[string]interface{}{
		"sessionId":     sessionID,
		"totalResults":  len(results),
		"emailsSent":    output.EmailsSent,
		"emailsSkipped": output.EmailsSkipped,
	}
	payload, err := json.Marshal(digest)
	if err != nil {
		return err
	}

	_, err = h.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String("Matching session completed"),
		Message:  aws.String(string(payload)),
	})
	return err
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
