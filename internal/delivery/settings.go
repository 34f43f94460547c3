package delivery

import (
	"fmt"
	"time"
)

// Settings is the immutable per-campaign delivery configuration. It is
// loaded once when a dispatch is accepted, serialized onto the campaign
// record, and never mutated during the run.
type Settings struct {
	// BatchSize groups this many chunks into a super-group that shares
	// an extra BatchDelay pause.
	BatchSize  int           `json:"batchSize" validate:"min=1"`
	BatchDelay time.Duration `json:"batchDelay" validate:"min=0"`

	// ChunkSize bounds how many recipients share one transport call.
	ChunkSize  int           `json:"chunkSize" validate:"min=1"`
	ChunkDelay time.Duration `json:"chunkDelay" validate:"min=0"`

	// MaxRetries bounds send attempts for a chunk at a given size before
	// the dispatcher degrades to the next RetryChunkSizes entry.
	MaxRetries      int           `json:"maxRetries" validate:"min=1"`
	MaxBackoffDelay time.Duration `json:"maxBackoffDelay" validate:"min=0"`

	// RetryChunkSizes lists progressively smaller chunk sizes used to
	// re-split a chunk that keeps failing as a whole. May be empty.
	RetryChunkSizes []int `json:"retryChunkSizes"`
}

// Validate rejects settings that would make dispatch impossible. These
// are programmer/configuration errors surfaced before any send begins.
func (s Settings) Validate() error {
	if s.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidSettings, s.BatchSize)
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries %d", ErrInvalidSettings, s.MaxRetries)
	}
	if s.BatchDelay < 0 || s.ChunkDelay < 0 || s.MaxBackoffDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidSettings)
	}
	for _, size := range s.RetryChunkSizes {
		if size <= 0 {
			return fmt.Errorf("%w: retry chunk size %d", ErrInvalidSettings, size)
		}
	}
	return nil
}
