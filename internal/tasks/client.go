package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"tern/internal/utils/logger"
)

// TaskClient handles task enqueuing with context support.
type TaskClient struct {
	client *asynq.Client
	logger *logger.Logger
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(redisAddr, username, password string, db int) *TaskClient {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Username: username,
		Password: password,
		DB:       db,
	}

	return &TaskClient{
		client: asynq.NewClient(redisOpt),
		logger: logger.New("TASKS"),
	}
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}

// EnqueueCampaignDispatch enqueues a campaign delivery run. A zero
// ScheduledAt dispatches immediately; a future one defers processing.
// Dispatch tasks are never auto-retried (see RetryNever).
func (c *TaskClient) EnqueueCampaignDispatch(ctx context.Context, task CampaignDispatchTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign dispatch task: %w", err)
	}

	opts := []asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.Timeout(TimeoutLong),
		asynq.MaxRetry(RetryNever),
	}

	switch {
	case task.ScheduledAt.After(time.Now()):
		opts = append(opts, asynq.ProcessAt(task.ScheduledAt))
		c.logger.Info("scheduling campaign [%s] at %s",
			task.CampaignID, task.ScheduledAt.Format(time.RFC3339))
	default:
		c.logger.Info("enqueueing campaign [%s] for immediate dispatch", task.CampaignID)
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeCampaignDispatch, payload), opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue campaign dispatch task: %w", err)
	}

	c.logger.Success("enqueued campaign dispatch [%s] in queue %s for campaign %s with %d recipients",
		info.ID, info.Queue, task.CampaignID, len(task.Addresses))
	return nil
}

// EnqueueCampaignPrune enqueues a sweep of stale draft campaigns.
func (c *TaskClient) EnqueueCampaignPrune(ctx context.Context, task CampaignPruneTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign prune task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeCampaignPrune, payload),
		asynq.Queue(QueueLow),
		asynq.Timeout(TimeoutMedium),
		asynq.MaxRetry(RetryMin),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue campaign prune task: %w", err)
	}

	c.logger.Info("enqueued campaign prune task [%s] in queue %s", info.ID, info.Queue)
	return nil
}
