package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"tern/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler
func NewScheduler(redisAddr, username, password string, db int, logger *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
		&asynq.SchedulerOpts{},
	)

	return &Scheduler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	// Draft campaign cleanup (daily at midnight)
	payload, err := json.Marshal(CampaignPruneTask{OlderThanDays: 30})
	if err != nil {
		return fmt.Errorf("failed to marshal prune payload: %w", err)
	}

	entryID, err := s.scheduler.Register("0 0 * * *", asynq.NewTask(
		TaskTypeCampaignPrune,
		payload,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutMedium),
	))
	if err != nil {
		return fmt.Errorf("failed to register campaign prune scheduler: %w", err)
	}
	s.logger.Debug("registered campaign prune scheduler %s", entryID)

	s.logger.Info("registered all periodic tasks")
	return nil
}
