package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/runlens/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Archive implements ports.Archive using Redis.
// Recordings are JSON values; a ZSET scored by recording time indexes them.
type Archive struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Archive)

// WithTTL sets the expiration for recordings.
func WithTTL(ttl time.Duration) Option {
	return func(a *Archive) {
		a.ttl = ttl
	}
}

// WithPrefix sets the key prefix for recordings.
func WithPrefix(prefix string) Option {
	return func(a *Archive) {
		a.prefix = prefix
	}
}

// New creates a new Redis archive with options.
func New(address, password string, db int, opts ...Option) *Archive {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis archive from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Archive {
	archive := &Archive{
		client: client,
		prefix: "runlens:run:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(archive)
	}

	return archive
}

func (a *Archive) key(runID string) string {
	return a.prefix + runID
}

func (a *Archive) indexKey() string {
	return a.prefix + "index"
}

// Save persists the recording to Redis.
func (a *Archive) Save(ctx context.Context, rec domain.Recording) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recording: %w", err)
	}

	pipe := a.client.Pipeline()

	// Use 0 for no expiration if ttl is not set.
	pipe.Set(ctx, a.key(rec.RunID), data, a.ttl)
	pipe.ZAdd(ctx, a.indexKey(), backend.Z{
		Score:  float64(rec.RecordedAt.UnixMilli()),
		Member: rec.RunID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the recording from Redis.
func (a *Archive) Load(ctx context.Context, runID string) (domain.Recording, error) {
	val, err := a.client.Get(ctx, a.key(runID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Recording{}, fmt.Errorf("run %q: %w", runID, domain.ErrRecordingNotFound)
		}
		return domain.Recording{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var rec domain.Recording
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return domain.Recording{}, fmt.Errorf("failed to unmarshal recording: %w", err)
	}
	return rec, nil
}

// Delete removes the recording.
func (a *Archive) Delete(ctx context.Context, runID string) error {
	pipe := a.client.Pipeline()
	pipe.Del(ctx, a.key(runID))
	pipe.ZRem(ctx, a.indexKey(), runID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns archived runs, most recent first.
// Index entries older than the TTL are pruned lazily.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	if a.ttl > 0 {
		cutoff := float64(time.Now().Add(-a.ttl).UnixMilli())
		err := a.client.ZRemRangeByScore(ctx, a.indexKey(), "-inf", fmt.Sprintf("(%f", cutoff)).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to prune expired runs: %w", err)
		}
	}

	runs, err := a.client.ZRevRange(ctx, a.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the redis client.
func (a *Archive) Close() error {
	return a.client.Close()
}
