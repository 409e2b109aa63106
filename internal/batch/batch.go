// Package batch runs one generation call per label, either one after another
// or all at once, and keeps every result paired with its label.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"affiliate-studio/internal/fault"
)

type Mode int

const (
	// Sequential awaits each call before starting the next and stops on the
	// first failure.
	Sequential Mode = iota
	// Concurrent starts every call at once; the first failure cancels the rest.
	Concurrent
)

func (m Mode) String() string {
	if m == Concurrent {
		return "concurrent"
	}
	return "sequential"
}

func ParseMode(value string) (Mode, error) {
	switch value {
	case "", "sequential", "seq":
		return Sequential, nil
	case "concurrent", "parallel":
		return Concurrent, nil
	}
	return Sequential, fmt.Errorf("unknown batch mode %q", value)
}

type Call func(ctx context.Context, index int, label string) (string, error)

type Result struct {
	Index int
	Label string
	Value string
}

type Options struct {
	Mode Mode
	// OnResult sees each success as it lands. Calls are serialised.
	OnResult func(Result)
	// Retry builds a fresh policy per call. Nil disables retries.
	Retry   func() backoff.BackOff
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

var ErrNoLabels = errors.New("batch has no labels")

// DefaultRetry retries transport failures twice with exponential spacing.
func DefaultRetry() backoff.BackOff {
	return RetryUpTo(2)()
}

// RetryUpTo builds exponential policies capped at maxRetries retries. Zero
// or less returns nil, which disables retries.
func RetryUpTo(maxRetries int) func() backoff.BackOff {
	if maxRetries <= 0 {
		return nil
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 2 * time.Second
		b.MaxInterval = 10 * time.Second
		b.MaxElapsedTime = time.Minute
		return backoff.WithMaxRetries(b, uint64(maxRetries))
	}
}

// Run returns one result per label in label order. On any failure it returns
// a nil slice and the first error, so a partial batch is never reported as
// complete; successes that landed before the failure were already passed to
// OnResult.
func Run(ctx context.Context, labels []string, call Call, opts Options) ([]Result, error) {
	if len(labels) == 0 {
		return nil, fault.New(fault.Validation, "batch.Run", ErrNoLabels)
	}

	r := &runner{call: call, opts: opts, logger: opts.Logger}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.Mode == Concurrent {
		return r.concurrent(ctx, labels)
	}
	return r.sequential(ctx, labels)
}

type runner struct {
	call   Call
	opts   Options
	logger *slog.Logger

	mu sync.Mutex
}

func (r *runner) sequential(ctx context.Context, labels []string) ([]Result, error) {
	results := make([]Result, 0, len(labels))
	for i, label := range labels {
		if err := ctx.Err(); err != nil {
			return nil, fault.New(fault.Transport, "batch.Run", err)
		}
		value, err := r.invoke(ctx, i, label)
		if err != nil {
			r.logger.Warn("batch stopped", "label", label, "index", i, "done", len(results), "error", err)
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		res := Result{Index: i, Label: label, Value: value}
		results = append(results, res)
		r.report(res)
	}
	return results, nil
}

func (r *runner) concurrent(ctx context.Context, labels []string) ([]Result, error) {
	results := make([]Result, len(labels))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, label := range labels {
		eg.Go(func() error {
			value, err := r.invoke(egCtx, i, label)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			results[i] = Result{Index: i, Label: label, Value: value}
			r.report(results[i])
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		r.logger.Warn("batch aborted", "labels", len(labels), "error", err)
		return nil, err
	}
	return results, nil
}

func (r *runner) invoke(ctx context.Context, index int, label string) (string, error) {
	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Wait(ctx); err != nil {
			return "", fault.New(fault.Transport, "batch.Run", err)
		}
	}

	if r.opts.Retry == nil {
		return r.call(ctx, index, label)
	}

	var value string
	attempt := func() error {
		v, err := r.call(ctx, index, label)
		if err != nil {
			if !fault.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		value = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Info("retrying generation", "label", label, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(attempt, backoff.WithContext(r.opts.Retry(), ctx), notify); err != nil {
		return "", fault.Classify("batch.Run", err, false)
	}
	return value, nil
}

func (r *runner) report(res Result) {
	if r.opts.OnResult == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.OnResult(res)
}
