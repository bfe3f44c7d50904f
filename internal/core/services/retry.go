package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

// RetryPolicy retries rate-limited generator calls with exponential
// backoff. Other errors are returned immediately.
type RetryPolicy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxAttempts  int

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger
}

// DefaultRetryPolicy waits 5s, 10s, 20s, 40s between at most 5 attempts
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		InitialDelay: 5 * time.Second,
		Multiplier:   2,
		MaxAttempts:  5,
	}
}

// Do runs fn until it succeeds, fails with a non-rate-limit error, or the
// attempts are used up.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		if attempt == attempts {
			break
		}

		p.logger().Warn("rate limited, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay,
		)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay = time.Duration(float64(delay) * p.multiplier())
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

// Generate calls the generator under the policy
func (p *RetryPolicy) Generate(ctx context.Context, gen driven.ContentGenerator, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	var result *domain.GenerationResult
	err := p.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = gen.Generate(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *RetryPolicy) multiplier() float64 {
	if p.Multiplier < 1 {
		return 2
	}
	return p.Multiplier
}

func (p *RetryPolicy) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}
