package retry

import (
	"context"
	"math"
	"time"

	"jiradataset/pkg/config"
	errs "jiradataset/pkg/errors"
)

// Backoff decides how long to wait before the next attempt
type Backoff interface {
	// Delay returns the wait after the given 0-based attempt failed with class
	Delay(attempt int, class errs.Class) time.Duration
}

// Policy is exponential backoff with a fixed ceiling. Rate-limited failures
// always wait the ceiling.
type Policy struct {
	// InitialDelay is the wait after the first failed attempt
	InitialDelay time.Duration
	// MaxDelay caps every wait
	MaxDelay time.Duration
	// Base is the growth factor between attempts
	Base float64
}

// DefaultPolicy returns 2s, 4s, 8s ... capped at 60s
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Base:         2.0,
	}
}

// PolicyFromConfig builds a Policy, falling back to defaults for unset fields
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.InitialDelay > 0 {
		p.InitialDelay = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	if cfg.Base >= 1 {
		p.Base = cfg.Base
	}
	return p
}

// Delay implements Backoff
func (p Policy) Delay(attempt int, class errs.Class) time.Duration {
	if class == errs.ClassRateLimited {
		return p.MaxDelay
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(p.InitialDelay) * math.Pow(p.Base, float64(attempt))
	if delay > float64(p.MaxDelay) || math.IsInf(delay, 0) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Sleeper pauses for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
