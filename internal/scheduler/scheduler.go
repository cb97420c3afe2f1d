package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// WaitHint selects the inter-cycle wait tier from session state.
type WaitHint int

const (
	// WaitPrimary applies while the primary session is open.
	WaitPrimary WaitHint = iota
	// WaitSecondary applies when only a secondary session is open.
	WaitSecondary
	// WaitOffHours applies when no gated session is open.
	WaitOffHours
)

func (h WaitHint) String() string {
	switch h {
	case WaitPrimary:
		return "primary"
	case WaitSecondary:
		return "secondary"
	default:
		return "off_hours"
	}
}

// Options tune scheduler behaviour.
type Options struct {
	PrimaryWait   time.Duration
	SecondaryWait time.Duration
	OffHoursWait  time.Duration
	// Cooldown follows a failed cycle; it is deliberately shorter than
	// any wait tier so a persistently failing scan still makes progress
	// without spinning.
	Cooldown     time.Duration
	StartupDelay time.Duration
}

// WaitFor maps a hint to its configured wait tier.
func (o Options) WaitFor(hint WaitHint) time.Duration {
	switch hint {
	case WaitPrimary:
		return o.PrimaryWait
	case WaitSecondary:
		return o.SecondaryWait
	default:
		return o.OffHoursWait
	}
}

// CycleFunc runs one full scan cycle and reports which wait tier applies
// next.
type CycleFunc func(ctx context.Context, cycle int) (WaitHint, error)

// Scheduler drives the endless evaluate-then-wait loop.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.PrimaryWait <= 0 || opts.SecondaryWait <= 0 || opts.OffHoursWait <= 0 {
		panic("scheduler wait tiers must be positive")
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, executing cycles until ctx is cancelled. Cycle failures and
// panics are contained: they trigger the cooldown, never termination.
func (s *Scheduler) Run(ctx context.Context, cycle CycleFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := s.sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	for n := 1; ; n++ {
		s.logger.Info().Int("cycle", n).Msg("starting cycle")

		hint, err := s.safeCycle(ctx, cycle, n)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := s.opts.WaitFor(hint)
		if err != nil {
			s.logger.Error().Err(err).Int("cycle", n).Msg("cycle failed; applying cooldown")
			delay = s.opts.Cooldown
		} else {
			s.logger.Info().Int("cycle", n).Str("tier", hint.String()).Dur("wait", delay).Msg("cycle complete")
		}

		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// safeCycle converts a panicking cycle into an error so the loop survives.
func (s *Scheduler) safeCycle(ctx context.Context, cycle CycleFunc, n int) (hint WaitHint, err error) {
	defer func() {
		if r := recover(); r != nil {
			hint = WaitOffHours
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return cycle(ctx, n)
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
