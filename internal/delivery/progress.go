package delivery

import "sync"

// Snapshot is a read-only view of campaign progress for UI/CLI polling.
type Snapshot struct {
	CampaignID      string `json:"campaignId"`
	CompletedChunks int    `json:"completedChunks"`
	TotalChunks     int    `json:"totalChunks"`
	TotalSent       int    `json:"sentCount"`
	TotalFailed     int    `json:"failedCount"`
	IsComplete      bool   `json:"isComplete"`
}

// Success reports whether the run delivered anything at all. A non-zero
// failure count is a warning state, not an outright failure, unless
// nothing was sent.
func (s Snapshot) Success() bool {
	return s.TotalSent > 0 || s.TotalFailed == 0
}

// Tracker aggregates per-chunk outcomes into running campaign totals.
// Updates happen synchronously after each dispatcher step; snapshots are
// safe to read from other goroutines.
type Tracker struct {
	mu         sync.Mutex
	campaignID string

	completedChunks int
	totalChunks     int
	totalSent       int
	totalFailed     int
	complete        bool
}

// NewTracker creates a tracker for a campaign with a known chunk count.
func NewTracker(campaignID string, totalChunks int) *Tracker {
	return &Tracker{campaignID: campaignID, totalChunks: totalChunks}
}

// RecordDelivery adds the outcome of one resolved chunk or sub-chunk.
func (t *Tracker) RecordDelivery(sent, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalSent += sent
	t.totalFailed += failed
}

// ChunkCompleted marks one top-level chunk as fully resolved, including
// all of its retries and sub-splits.
func (t *Tracker) ChunkCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedChunks++
}

// Finish marks the campaign resolved; later snapshots report complete.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.complete = true
}

// Snapshot returns the current progress totals.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		CampaignID:      t.campaignID,
		CompletedChunks: t.completedChunks,
		TotalChunks:     t.totalChunks,
		TotalSent:       t.totalSent,
		TotalFailed:     t.totalFailed,
		IsComplete:      t.complete,
	}
}
