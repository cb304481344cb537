package polly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"
	"github.com/phrazzld/synth-api/internal/config"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/logger"
)

// ErrUnknownTaskStatus is returned when Polly reports a status this service does not model.
var ErrUnknownTaskStatus = errors.New("unknown synthesis task status")

// Client submits and queries Polly speech synthesis tasks.
type Client struct {
	api     pollyiface.PollyAPI
	bucket  string
	prefix  string
	format  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a Client writing output to the bucket and prefix in cfg.
func NewClient(api pollyiface.PollyAPI, cfg config.PollyConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	format := cfg.OutputFormat
	if format == "" {
		format = polly.OutputFormatMp3
	}

	return &Client{
		api:     api,
		bucket:  cfg.OutputBucket,
		prefix:  cfg.OutputKeyPrefix,
		format:  format,
		timeout: cfg.RequestTimeout,
		logger:  logger.With("component", "polly_client"),
	}
}

// Submit starts an asynchronous synthesis task and returns its task ID.
func (c *Client) Submit(ctx context.Context, req domain.SynthesisRequest) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	input := &polly.StartSpeechSynthesisTaskInput{
		Engine:             aws.String(req.VoiceType),
		LanguageCode:       aws.String(req.Language),
		OutputFormat:       aws.String(c.format),
		OutputS3BucketName: aws.String(c.bucket),
		Text:               aws.String(req.Text),
		VoiceId:            aws.String(req.Voice),
	}
	if c.prefix != "" {
		input.OutputS3KeyPrefix = aws.String(c.prefix)
	}

	out, err := c.api.StartSpeechSynthesisTaskWithContext(ctx, input)
	if err != nil {
		log.Error("failed to start synthesis task",
			"error", err,
			"voice", req.Voice,
			"engine", req.VoiceType)
		return "", fmt.Errorf("start synthesis task: %w", err)
	}

	if out.SynthesisTask == nil || aws.StringValue(out.SynthesisTask.TaskId) == "" {
		return "", fmt.Errorf("start synthesis task: response carried no task ID")
	}

	taskID := aws.StringValue(out.SynthesisTask.TaskId)
	log.Info("synthesis task started",
		"task_id", taskID,
		"status", aws.StringValue(out.SynthesisTask.TaskStatus))

	return taskID, nil
}

// Query returns the provider's current view of a task.
// A task Polly no longer knows yields domain.ErrRemoteTaskNotFound.
func (c *Client) Query(ctx context.Context, taskID string) (*domain.TaskSnapshot, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.GetSpeechSynthesisTaskWithContext(ctx, &polly.GetSpeechSynthesisTaskInput{
		TaskId: aws.String(taskID),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == polly.ErrCodeSynthesisTaskNotFoundException {
			return nil, fmt.Errorf("%w: %s", domain.ErrRemoteTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("get synthesis task %s: %w", taskID, err)
	}

	if out.SynthesisTask == nil {
		return nil, fmt.Errorf("get synthesis task %s: empty response", taskID)
	}

	status, err := mapStatus(aws.StringValue(out.SynthesisTask.TaskStatus))
	if err != nil {
		return nil, fmt.Errorf("get synthesis task %s: %w", taskID, err)
	}

	snap := &domain.TaskSnapshot{
		TaskID: taskID,
		Status: status,
		Reason: aws.StringValue(out.SynthesisTask.TaskStatusReason),
	}
	if status == domain.TaskStatusCompleted {
		snap.OutputURI = aws.StringValue(out.SynthesisTask.OutputUri)
	}

	return snap, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// mapStatus folds Polly's scheduled state into inProgress.
func mapStatus(s string) (domain.TaskStatus, error) {
	switch s {
	case polly.TaskStatusScheduled, polly.TaskStatusInProgress:
		return domain.TaskStatusInProgress, nil
	case polly.TaskStatusCompleted:
		return domain.TaskStatusCompleted, nil
	case polly.TaskStatusFailed:
		return domain.TaskStatusFailed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskStatus, s)
	}
}
