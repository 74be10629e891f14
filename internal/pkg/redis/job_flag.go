package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "presence:jobflag:"
	// completedTTL keeps finished runs long enough to cover a monthly job's replay window.
	completedTTL = 45 * 24 * time.Hour
)

// JobFlagGuard is a jobflag.Guard backed by Redis. A running job holds a
// lease key that expires after the stale timeout unless it is heartbeated;
// a finished job leaves a done key behind so the run is never repeated.
type JobFlagGuard struct {
	client    *redis.Client
	keyPrefix string

	mu     sync.Mutex
	leases map[string]time.Duration
}

func NewJobFlagGuard(client *redis.Client, keyPrefix string) *JobFlagGuard {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &JobFlagGuard{
		client:    client,
		keyPrefix: keyPrefix,
		leases:    make(map[string]time.Duration),
	}
}

func (g *JobFlagGuard) leaseKey(id string) string { return g.keyPrefix + id + ":lease" }
func (g *JobFlagGuard) doneKey(id string) string  { return g.keyPrefix + id + ":done" }
func (g *JobFlagGuard) errorKey(id string) string { return g.keyPrefix + id + ":error" }

// Claim implements jobflag.Guard.
func (g *JobFlagGuard) Claim(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	done, err := g.client.Exists(ctx, g.doneKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check job flag %s: %w", id, err)
	}
	if done > 0 {
		return false, nil
	}

	claimed, err := g.client.SetNX(ctx, g.leaseKey(id), time.Now().UTC().Format(time.RFC3339Nano), staleAfter).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job flag %s: %w", id, err)
	}
	if claimed {
		g.mu.Lock()
		g.leases[id] = staleAfter
		g.mu.Unlock()
	}
	return claimed, nil
}

// Heartbeat implements jobflag.Guard.
func (g *JobFlagGuard) Heartbeat(ctx context.Context, id string) error {
	g.mu.Lock()
	ttl, ok := g.leases[id]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("job flag %s is not held", id)
	}

	extended, err := g.client.Expire(ctx, g.leaseKey(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to heartbeat job flag %s: %w", id, err)
	}
	if !extended {
		return fmt.Errorf("job flag %s lease expired", id)
	}
	return nil
}

// Complete implements jobflag.Guard.
func (g *JobFlagGuard) Complete(ctx context.Context, id string, result map[string]interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{
		"status":       string(jobflag.StatusCompleted),
		"completed_at": time.Now().UTC(),
		"result":       result,
	})
	if err != nil {
		return fmt.Errorf("failed to encode job result: %w", err)
	}

	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, g.doneKey(id), payload, completedTTL)
		pipe.Del(ctx, g.leaseKey(id), g.errorKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to complete job flag %s: %w", id, err)
	}
	g.release(id)
	return nil
}

// Fail implements jobflag.Guard. The lease is dropped so the next run can claim it.
func (g *JobFlagGuard) Fail(ctx context.Context, id string, cause error) error {
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}

	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, g.errorKey(id), message, completedTTL)
		pipe.Del(ctx, g.leaseKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job flag %s as failed: %w", id, err)
	}
	g.release(id)
	return nil
}

// LastError returns the message recorded by Fail, if any.
func (g *JobFlagGuard) LastError(ctx context.Context, id string) (string, bool, error) {
	message, err := g.client.Get(ctx, g.errorKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read job flag %s: %w", id, err)
	}
	return message, true, nil
}

func (g *JobFlagGuard) release(id string) {
	g.mu.Lock()
	delete(g.leases, id)
	g.mu.Unlock()
}
