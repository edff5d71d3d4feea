package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/scanner"
)

const (
	defaultMaxConcurrency = 10
	defaultRetryBackoff   = 100 * time.Millisecond
)

var errPanic = errors.New("scanner panicked")

type Options struct {
	// MaxConcurrency bounds how many scanners run at once.
	MaxConcurrency int
	// ScannerTimeout caps a single scanner, retries included. Zero disables it.
	ScannerTimeout time.Duration
	// BatchDeadline caps the whole fan-out. Zero disables it.
	BatchDeadline time.Duration
	// MaxRetries applies to transient scanner errors only.
	MaxRetries   uint64
	RetryBackoff time.Duration
}

// Orchestrator fans a query out to every eligible scanner and joins the
// results once all of them have settled. A failing scanner never affects
// its siblings.
type Orchestrator struct {
	registry *scanner.Registry
	opts     Options
	logger   zerolog.Logger
}

func New(registry *scanner.Registry, opts Options, logger zerolog.Logger) *Orchestrator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Orchestrator{
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

func (o *Orchestrator) Options() Options { return o.opts }

// Run returns one result per eligible scanner, keyed by scanner name. The
// only error is an invalid query; scanner failures are reported in-band.
func (o *Orchestrator) Run(ctx context.Context, q model.Query) (map[string]model.ScannerResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	scanners := o.registry.Eligible(q)
	results := make(map[string]model.ScannerResult, len(scanners))
	if len(scanners) == 0 {
		o.logger.Warn().Str("query_id", q.ID).Str("query_type", string(q.Type)).Msg("No eligible scanners")
		return results, nil
	}

	batchCtx := ctx
	if o.opts.BatchDeadline > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, o.opts.BatchDeadline)
		defer cancel()
	}

	o.logger.Debug().
		Str("query_id", q.ID).
		Int("scanner_count", len(scanners)).
		Int("max_concurrency", o.opts.MaxConcurrency).
		Msg("Starting scanner batch")

	start := time.Now()
	// Each task owns its slot, so no locking is needed.
	slots := make([]model.ScannerResult, len(scanners))

	var g errgroup.Group
	g.SetLimit(o.opts.MaxConcurrency)
	for i, s := range scanners {
		i, s := i, s
		g.Go(func() error {
			slots[i] = o.runScanner(batchCtx, s, q)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range slots {
		results[r.ScannerName] = r
	}

	counts := model.ResultCounts(results)
	o.logger.Info().
		Str("query_id", q.ID).
		Int("completed", counts[model.ResultStatusCompleted]).
		Int("failed", counts[model.ResultStatusFailed]).
		Int("timeout", counts[model.ResultStatusTimeout]).
		Dur("duration", time.Since(start)).
		Msg("Scanner batch settled")

	return results, nil
}

func (o *Orchestrator) runScanner(ctx context.Context, s scanner.Scanner, q model.Query) model.ScannerResult {
	start := time.Now()
	res := model.ScannerResult{ScannerName: s.Name()}

	out, attempts, err := o.scan(ctx, s, q)
	res.ExecutionTime = time.Since(start)
	res.Attempts = attempts

	if err != nil {
		res.Status = classify(err)
		res.Error = err.Error()
		o.logger.Warn().
			Err(err).
			Str("query_id", q.ID).
			Str("scanner", res.ScannerName).
			Str("status", string(res.Status)).
			Int("attempts", attempts).
			Dur("duration", res.ExecutionTime).
			Msg("Scanner did not complete")
		return res
	}

	res.Status = model.ResultStatusCompleted
	res.Data = out.Data
	res.Confidence = model.ClampConfidence(out.Confidence)
	return res
}

// scan runs s under the per-scanner timeout, retrying transient errors.
func (o *Orchestrator) scan(ctx context.Context, s scanner.Scanner, q model.Query) (scanner.Output, int, error) {
	if err := ctx.Err(); err != nil {
		return scanner.Output{}, 0, err
	}
	if o.opts.ScannerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ScannerTimeout)
		defer cancel()
	}

	var (
		out      scanner.Output
		attempts int
	)
	backoff := retry.WithMaxRetries(o.opts.MaxRetries, retry.NewConstant(o.opts.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		var err error
		out, err = invoke(ctx, s, q)
		if err != nil && scanner.IsTransient(err) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
	return out, attempts, err
}

// invoke returns when the scanner does or when ctx ends, whichever is
// first. A scanner that ignores its context is abandoned, not awaited.
func invoke(ctx context.Context, s scanner.Scanner, q model.Query) (scanner.Output, error) {
	type outcome struct {
		out scanner.Output
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", errPanic, r)}
			}
		}()
		out, err := s.Scan(ctx, q)
		done <- outcome{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return scanner.Output{}, ctx.Err()
	case o := <-done:
		return o.out, o.err
	}
}

func classify(err error) model.ResultStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ResultStatusTimeout
	}
	return model.ResultStatusFailed
}
