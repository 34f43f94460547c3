package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tern/internal/config"
)

func defaultDelivery() config.DeliveryConfig {
	return config.DeliveryConfig{
		BatchSize:       5,
		BatchDelay:      5 * time.Second,
		ChunkSize:       50,
		ChunkDelay:      time.Second,
		MaxRetries:      3,
		MaxBackoffDelay: 30 * time.Second,
		RetryChunkSizes: []int{10, 1},
	}
}

func intPtr(n int) *int { return &n }

func TestMergeSettingsUsesDefaults(t *testing.T) {
	h := &CampaignHandler{defaults: defaultDelivery()}

	settings := h.mergeSettings(nil)
	assert.Equal(t, 5, settings.BatchSize)
	assert.Equal(t, 5*time.Second, settings.BatchDelay)
	assert.Equal(t, 50, settings.ChunkSize)
	assert.Equal(t, time.Second, settings.ChunkDelay)
	assert.Equal(t, 3, settings.MaxRetries)
	assert.Equal(t, 30*time.Second, settings.MaxBackoffDelay)
	assert.Equal(t, []int{10, 1}, settings.RetryChunkSizes)
	assert.NoError(t, settings.Validate())
}

func TestMergeSettingsAppliesOverrides(t *testing.T) {
	h := &CampaignHandler{defaults: defaultDelivery()}

	settings := h.mergeSettings(&SettingsOverrides{
		ChunkSize:       intPtr(20),
		ChunkDelayMs:    intPtr(250),
		MaxBackoffMs:    intPtr(10000),
		RetryChunkSizes: []int{5},
	})

	assert.Equal(t, 20, settings.ChunkSize)
	assert.Equal(t, 250*time.Millisecond, settings.ChunkDelay)
	assert.Equal(t, 10*time.Second, settings.MaxBackoffDelay)
	assert.Equal(t, []int{5}, settings.RetryChunkSizes)
	// Untouched fields keep the server defaults.
	assert.Equal(t, 5, settings.BatchSize)
	assert.Equal(t, 3, settings.MaxRetries)
}

func TestMergeSettingsDoesNotAliasDefaults(t *testing.T) {
	h := &CampaignHandler{defaults: defaultDelivery()}

	settings := h.mergeSettings(nil)
	settings.RetryChunkSizes[0] = 99
	assert.Equal(t, []int{10, 1}, h.defaults.RetryChunkSizes)
}
