package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerAggregatesOutcomes(t *testing.T) {
	tracker := NewTracker("cmp-1", 3)

	tracker.RecordDelivery(10, 0)
	tracker.ChunkCompleted()
	tracker.RecordDelivery(7, 3)
	tracker.ChunkCompleted()

	snap := tracker.Snapshot()
	assert.Equal(t, "cmp-1", snap.CampaignID)
	assert.Equal(t, 2, snap.CompletedChunks)
	assert.Equal(t, 3, snap.TotalChunks)
	assert.Equal(t, 17, snap.TotalSent)
	assert.Equal(t, 3, snap.TotalFailed)
	assert.False(t, snap.IsComplete)

	tracker.RecordDelivery(0, 5)
	tracker.ChunkCompleted()
	tracker.Finish()

	snap = tracker.Snapshot()
	assert.True(t, snap.IsComplete)
	assert.Equal(t, 17, snap.TotalSent)
	assert.Equal(t, 8, snap.TotalFailed)
}

func TestSnapshotSuccess(t *testing.T) {
	assert.True(t, Snapshot{TotalSent: 10}.Success())
	assert.True(t, Snapshot{TotalSent: 10, TotalFailed: 2}.Success())
	assert.True(t, Snapshot{}.Success())
	assert.False(t, Snapshot{TotalFailed: 5}.Success())
}

func TestSettingsValidate(t *testing.T) {
	valid := Settings{
		BatchSize:       5,
		BatchDelay:      time.Second,
		ChunkSize:       50,
		ChunkDelay:      time.Second,
		MaxRetries:      3,
		MaxBackoffDelay: 30 * time.Second,
		RetryChunkSizes: []int{10, 1},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   error
	}{
		{"zero chunk size", func(s *Settings) { s.ChunkSize = 0 }, ErrInvalidChunkSize},
		{"zero batch size", func(s *Settings) { s.BatchSize = 0 }, ErrInvalidSettings},
		{"zero retries", func(s *Settings) { s.MaxRetries = 0 }, ErrInvalidSettings},
		{"negative delay", func(s *Settings) { s.ChunkDelay = -time.Second }, ErrInvalidSettings},
		{"zero retry chunk size", func(s *Settings) { s.RetryChunkSizes = []int{10, 0} }, ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.RetryChunkSizes = append([]int(nil), valid.RetryChunkSizes...)
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}
