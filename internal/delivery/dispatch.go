package delivery

import (
	"context"
	"time"

	"tern/internal/utils/logger"
)

// retryBaseDelay is the initial backoff delay; successive retries double
// it up to Settings.MaxBackoffDelay.
const retryBaseDelay = 500 * time.Millisecond

// Message is the rendered campaign payload handed to the transport.
// Rendering happens upstream; the pipeline treats Body as opaque.
type Message struct {
	CampaignID string
	Subject    string
	Body       string
}

// Rejection is a provider-reported permanent failure for one recipient.
type Rejection struct {
	Address string
	Reason  string
}

// SendResult reports per-recipient outcomes of one transport call. A
// non-nil result means the chunk resolved even if some recipients were
// rejected; whole-chunk failures are returned as errors instead.
type SendResult struct {
	Accepted []string
	Rejected []Rejection
}

// Transport delivers one message to a set of recipients in a single
// outbound call.
type Transport interface {
	Send(ctx context.Context, msg Message, recipients []string) (*SendResult, error)
}

// Dispatcher drives chunks through the outbound transport one at a time,
// applying retry, backoff, re-splitting, and pacing. It owns chunk state
// and campaign status transitions for the run's duration.
type Dispatcher struct {
	transport Transport
	settings  Settings
	tracker   *Tracker
	log       *logger.Logger

	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error

	// OnProgress, when set, receives a snapshot after each top-level
	// chunk resolves and once more when the run finishes.
	OnProgress func(Snapshot)
}

// NewDispatcher validates the configuration and builds a dispatcher.
// A nil transport or invalid settings are fatal configuration errors
// raised before any dispatch begins.
func NewDispatcher(transport Transport, settings Settings, tracker *Tracker, log *logger.Logger) (*Dispatcher, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = NewTracker("", 0)
	}
	if log == nil {
		log = logger.New("DISPATCH")
	}
	return &Dispatcher{
		transport: transport,
		settings:  settings,
		tracker:   tracker,
		log:       log,
		baseDelay: retryBaseDelay,
		sleep:     sleepContext,
	}, nil
}

// Run delivers all chunks sequentially: one chunk fully resolves,
// including its retries and sub-splits, before the next begins.
// Cancellation is honored between chunks; the in-flight chunk runs to
// completion. The returned snapshot is terminal either way, so
// TotalSent + TotalFailed always equals the recipient count.
func (d *Dispatcher) Run(ctx context.Context, msg Message, chunks []*Chunk) (Snapshot, error) {
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			d.failRemaining(chunks[i:])
			return d.finish(), err
		}

		d.deliverChunk(ctx, msg, chunk, d.settings.RetryChunkSizes)
		d.tracker.ChunkCompleted()
		d.publish()

		if i == len(chunks)-1 {
			continue
		}
		delay := d.settings.ChunkDelay
		if (i+1)%d.settings.BatchSize == 0 {
			delay += d.settings.BatchDelay
		}
		if err := d.sleep(ctx, delay); err != nil {
			d.failRemaining(chunks[i+1:])
			return d.finish(), err
		}
	}

	return d.finish(), nil
}

// deliverChunk resolves one chunk: retries at the current size, then
// degrades to progressively smaller sub-chunks from the configured
// fallback sizes. Failure never escalates past the chunk.
func (d *Dispatcher) deliverChunk(ctx context.Context, msg Message, chunk *Chunk, fallbacks []int) {
	err := d.attemptChunk(ctx, msg, chunk)
	if err == nil {
		d.tracker.RecordDelivery(chunk.SentCount, chunk.FailedCount)
		return
	}

	// Skip fallback sizes that would not shrink the chunk.
	for len(fallbacks) > 0 && fallbacks[0] >= len(chunk.Addresses) {
		fallbacks = fallbacks[1:]
	}

	if IsRetryable(err) && len(fallbacks) > 0 {
		d.log.Warn("chunk %d failed at size %d, re-splitting into sub-chunks of %d: %v",
			chunk.Index, len(chunk.Addresses), fallbacks[0], err)

		subChunks, planErr := PlanChunks(chunk.Addresses, fallbacks[0])
		if planErr == nil {
			for _, sub := range subChunks {
				sub.Index = chunk.Index
				if ctx.Err() != nil {
					sub.State = ChunkStateFailed
					sub.FailedCount = len(sub.Addresses)
					d.tracker.RecordDelivery(0, sub.FailedCount)
				} else {
					d.deliverChunk(ctx, msg, sub, fallbacks[1:])
				}
				chunk.SentCount += sub.SentCount
				chunk.FailedCount += sub.FailedCount
			}
			chunk.State = resolveState(chunk)
			return
		}
	}

	chunk.State = ChunkStateFailed
	chunk.SentCount = 0
	chunk.FailedCount = len(chunk.Addresses)
	d.tracker.RecordDelivery(0, chunk.FailedCount)
	d.log.Warn("chunk %d failed after %d attempts: %v", chunk.Index, chunk.Attempts, err)
}

// attemptChunk tries to deliver the chunk at its current size, retrying
// whole-chunk transport failures with exponential backoff. A nil return
// means the chunk resolved: fully sent, partial, or every recipient
// rejected by the provider.
func (d *Dispatcher) attemptChunk(ctx context.Context, msg Message, chunk *Chunk) error {
	chunk.State = ChunkStateSending

	var lastErr error
	for attempt := 0; attempt < d.settings.MaxRetries; attempt++ {
		chunk.Attempts++
		result, err := d.transport.Send(ctx, msg, chunk.Addresses)
		if err == nil {
			chunk.SentCount = len(result.Accepted)
			chunk.FailedCount = len(result.Rejected)
			chunk.State = resolveState(chunk)
			for _, rejection := range result.Rejected {
				d.log.Warn("recipient %s rejected: %s", rejection.Address, rejection.Reason)
			}
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return err
		}
		if attempt == d.settings.MaxRetries-1 {
			break
		}

		delay := d.backoffDelay(attempt)
		d.log.Debug("chunk %d attempt %d failed, backing off %s: %v",
			chunk.Index, chunk.Attempts, delay, err)
		if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

// backoffDelay returns min(base * 2^attempt, MaxBackoffDelay).
func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := d.baseDelay << uint(attempt)
	if max := d.settings.MaxBackoffDelay; max > 0 && (delay > max || delay <= 0) {
		delay = max
	}
	return delay
}

// failRemaining marks chunks that will never be attempted as failed so
// the terminal totals still account for every recipient.
func (d *Dispatcher) failRemaining(chunks []*Chunk) {
	for _, chunk := range chunks {
		if chunk.State != ChunkStatePending {
			continue
		}
		chunk.State = ChunkStateFailed
		chunk.FailedCount = len(chunk.Addresses)
		d.tracker.RecordDelivery(0, chunk.FailedCount)
	}
}

func (d *Dispatcher) finish() Snapshot {
	d.tracker.Finish()
	d.publish()
	return d.tracker.Snapshot()
}

func (d *Dispatcher) publish() {
	if d.OnProgress != nil {
		d.OnProgress(d.tracker.Snapshot())
	}
}

func resolveState(chunk *Chunk) ChunkState {
	switch {
	case chunk.FailedCount == 0:
		return ChunkStateSent
	case chunk.SentCount == 0:
		return ChunkStateFailed
	default:
		return ChunkStatePartial
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
