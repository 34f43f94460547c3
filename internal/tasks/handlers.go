package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"tern/internal/models"
)

// CampaignRunner executes a campaign delivery run end to end.
type CampaignRunner interface {
	Run(ctx context.Context, campaignID string, addresses []string) error
}

// TaskHandler handles task processing with structured logging.
type TaskHandler struct {
	runner    CampaignRunner
	campaigns *models.CampaignStore
	logger    *zap.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(runner CampaignRunner, campaigns *models.CampaignStore, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		runner:    runner,
		campaigns: campaigns,
		logger:    logger,
	}
}

// HandleCampaignDispatch processes a campaign delivery task
func (h *TaskHandler) HandleCampaignDispatch(ctx context.Context, t *asynq.Task) error {
	var task CampaignDispatchTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal campaign dispatch task: %w", asynq.SkipRetry)
	}

	h.logger.Info("processing campaign dispatch",
		zap.String("campaign_id", task.CampaignID),
		zap.Int("recipients", len(task.Addresses)),
	)

	start := time.Now()
	if err := h.runner.Run(ctx, task.CampaignID, task.Addresses); err != nil {
		h.logger.Warn("campaign dispatch resolved with error",
			zap.String("campaign_id", task.CampaignID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		// The run archived whatever state it reached; retrying the task
		// would redeliver to chunks that already resolved.
		return nil
	}

	h.logger.Info("campaign dispatch completed",
		zap.String("campaign_id", task.CampaignID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HandleCampaignPrune deletes stale draft campaigns
func (h *TaskHandler) HandleCampaignPrune(ctx context.Context, t *asynq.Task) error {
	var task CampaignPruneTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal campaign prune task: %w", asynq.SkipRetry)
	}

	days := task.OlderThanDays
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	pruned, err := h.campaigns.PruneDrafts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune draft campaigns: %w", err)
	}

	h.logger.Info("pruned draft campaigns",
		zap.Int64("pruned", pruned),
		zap.Time("cutoff", cutoff),
	)
	return nil
}
