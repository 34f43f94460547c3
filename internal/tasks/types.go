package tasks

import "time"

// Task Types
const (
	// Campaign related tasks
	TaskTypeCampaignDispatch = "campaign:dispatch"
	TaskTypeCampaignPrune    = "campaign:prune"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like campaign dispatch
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryDefault = 3
	RetryMin     = 1

	// RetryNever disables asynq-level retries. Campaign dispatch runs
	// at-least-once per chunk with no idempotency keys, so a crashed
	// run must not be replayed wholesale against recipients that were
	// already delivered.
	RetryNever = 0
)

// Task Payloads

// CampaignDispatchTask carries everything the worker needs to deliver a
// campaign; settings travel on the campaign record's snapshot.
type CampaignDispatchTask struct {
	CampaignID  string    `json:"campaign_id"`
	Addresses   []string  `json:"addresses"`
	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// CampaignPruneTask sweeps stale draft campaigns.
type CampaignPruneTask struct {
	OlderThanDays int `json:"older_than_days"`
}
