package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tern/internal/config"
	"tern/internal/delivery"
)

// ErrProgressNotFound is returned when no progress snapshot exists for a
// campaign.
var ErrProgressNotFound = errors.New("campaign progress not found")

// progressTTL keeps snapshots around long enough for post-run review.
const progressTTL = 24 * time.Hour

// RedisClient wraps the Redis client with campaign progress storage.
type RedisClient struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		Username: cfg.Redis.Username,
		DB:       cfg.Redis.DB,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,

		// Timeout settings
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		// Retry settings
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{Client: client}, nil
}

// Close closes the Redis client
func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// HealthCheck checks if Redis is healthy
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx).Err()
}

func progressKey(campaignID string) string {
	return fmt.Sprintf("campaign:progress:%s", campaignID)
}

// PublishProgress stores the latest progress snapshot for a campaign so
// the HTTP API can poll it.
func (r *RedisClient) PublishProgress(ctx context.Context, snap delivery.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal progress snapshot: %w", err)
	}
	if err := r.Set(ctx, progressKey(snap.CampaignID), payload, progressTTL).Err(); err != nil {
		return fmt.Errorf("failed to store progress snapshot: %w", err)
	}
	return nil
}

// GetProgress fetches the latest progress snapshot for a campaign.
func (r *RedisClient) GetProgress(ctx context.Context, campaignID string) (*delivery.Snapshot, error) {
	payload, err := r.Get(ctx, progressKey(campaignID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress snapshot: %w", err)
	}

	var snap delivery.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress snapshot: %w", err)
	}
	return &snap, nil
}
