package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
)

type jobFlagGuard struct {
	s *Store
}

func (g jobFlagGuard) Claim(ctx context.Context, id string, staleAfter time.Duration) (bool, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	now := g.s.now()
	if f, exists := g.s.flags[id]; exists && !f.Claimable(now, staleAfter) {
		return false, nil
	}
	g.s.flags[id] = jobflag.Flag{
		ID:          id,
		Status:      jobflag.StatusProcessing,
		StartedAt:   now,
		HeartbeatAt: now,
	}
	return true, nil
}

func (g jobFlagGuard) Heartbeat(ctx context.Context, id string) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if f, ok := g.s.flags[id]; ok && f.Status == jobflag.StatusProcessing {
		f.HeartbeatAt = g.s.now()
		g.s.flags[id] = f
	}
	return nil
}

func (g jobFlagGuard) Complete(ctx context.Context, id string, result map[string]interface{}) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	now := g.s.now()
	f := g.s.flags[id]
	f.ID = id
	f.Status = jobflag.StatusCompleted
	f.CompletedAt = &now
	f.HeartbeatAt = now
	f.Error = nil
	f.Result = result
	g.s.flags[id] = f
	return nil
}

func (g jobFlagGuard) Fail(ctx context.Context, id string, cause error) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	f := g.s.flags[id]
	f.ID = id
	f.Status = jobflag.StatusError
	f.Error = &message
	f.HeartbeatAt = g.s.now()
	g.s.flags[id] = f
	return nil
}

func (g jobFlagGuard) LastError(ctx context.Context, id string) (string, bool, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	f, ok := g.s.flags[id]
	if !ok || f.Status != jobflag.StatusError || f.Error == nil {
		return "", false, nil
	}
	return *f.Error, true, nil
}
