// Package runner drives a session's step loop to completion, retrying
// transient failures with exponential backoff and saving progress
// periodically.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hugin-ai/hugin/internal/logging"
	"github.com/hugin-ai/hugin/internal/session"
)

const (
	// DefaultMaxSteps caps the step loop.
	DefaultMaxSteps = 200
	// MaxRetries is the maximum number of retries for a failing step.
	MaxRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = 2 * time.Minute
	// DefaultSaveEvery persists the session every N steps. 0 disables
	// periodic saves.
	DefaultSaveEvery = 10
	// DefaultIdleLimit stops the loop after N consecutive steps with no
	// progress on any branch.
	DefaultIdleLimit = 3
)

// Exit reasons reported in Result.
const (
	ExitFinished = "finished"
	ExitIdle     = "idle"
	ExitMaxSteps = "max_steps"
	ExitFailed   = "failed"
	ExitAborted  = "aborted"
)

// Result summarizes a completed run.
type Result struct {
	Exit  string
	Steps int
	Err   error
}

// Runner drives one session.
type Runner struct {
	session   *session.Session
	maxSteps  int
	saveEvery int
	idleLimit int
}

// Options tunes a runner. Zero values take the defaults.
type Options struct {
	MaxSteps  int
	SaveEvery int
	IdleLimit int
}

// New creates a runner for a session.
func New(s *session.Session, opts Options) *Runner {
	r := &Runner{
		session:   s,
		maxSteps:  opts.MaxSteps,
		saveEvery: opts.SaveEvery,
		idleLimit: opts.IdleLimit,
	}
	if r.maxSteps <= 0 {
		r.maxSteps = DefaultMaxSteps
	}
	if r.saveEvery == 0 {
		r.saveEvery = DefaultSaveEvery
	}
	if r.idleLimit <= 0 {
		r.idleLimit = DefaultIdleLimit
	}
	return r
}

// newRetryBackoff creates an exponential backoff with jitter for step
// retries, bounded by the context.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// Run steps the session until every agent finishes, the loop idles out,
// the step cap is hit, or a step fails past its retries. The session is
// saved on exit regardless of the outcome.
func (r *Runner) Run(ctx context.Context) Result {
	steps := 0
	idle := 0
	retry := newRetryBackoff(ctx)

	defer func() {
		if err := r.session.Save(context.WithoutCancel(ctx)); err != nil {
			logging.Warn().Err(err).Str("session", r.session.ID()).Msg("final save failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return Result{Exit: ExitAborted, Steps: steps, Err: ctx.Err()}
		default:
		}

		if steps >= r.maxSteps {
			logging.Warn().Str("session", r.session.ID()).Int("steps", steps).Msg("step cap reached")
			return Result{Exit: ExitMaxSteps, Steps: steps}
		}

		progress, err := r.session.Step(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Result{Exit: ExitAborted, Steps: steps, Err: err}
			}
			next := retry.NextBackOff()
			if next == backoff.Stop {
				logging.Error().Err(err).Str("session", r.session.ID()).Msg("step failed, retries exhausted")
				return Result{Exit: ExitFailed, Steps: steps, Err: err}
			}
			logging.Warn().Err(err).Dur("retryIn", next).Msg("step failed, retrying")
			time.Sleep(next)
			continue
		}
		retry.Reset()
		steps++

		if r.saveEvery > 0 && steps%r.saveEvery == 0 {
			if err := r.session.Save(ctx); err != nil {
				logging.Warn().Err(err).Str("session", r.session.ID()).Msg("periodic save failed")
			}
		}

		if r.session.Finished() {
			logging.Info().Str("session", r.session.ID()).Int("steps", steps).Msg("session finished")
			return Result{Exit: ExitFinished, Steps: steps}
		}

		if progress {
			idle = 0
			continue
		}
		idle++
		if idle >= r.idleLimit {
			// Every branch is blocked on external input or a condition
			// that cannot progress without outside help.
			logging.Info().Str("session", r.session.ID()).Int("steps", steps).Msg("session idle")
			return Result{Exit: ExitIdle, Steps: steps}
		}
	}
}
