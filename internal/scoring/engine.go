// Package scoring turns fingerprints into SAFE/SUSPICIOUS/MALICIOUS verdicts.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

const corroborationBonus = 10

const degradedReason = "Some reputation sources were unavailable; this verdict is based on partial data."

// Verdict is the combined result of all sources.
type Verdict struct {
	Status   models.ScanStatus
	Score    int
	Summary  string
	Reasons  []string
	Degraded bool
}

// Options configures an Engine.
type Options struct {
	Thresholds    Thresholds
	Timeout       time.Duration
	SourceTimeout time.Duration
	RetryDelay    time.Duration
	CacheTTL      time.Duration
	CacheSize     int

	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// Engine combines a configured list of sources.
type Engine struct {
	sources []Source
	opts    Options
	cache   *expirable.LRU[string, Verdict]
	metrics engineMetrics
	logger  *zap.Logger
}

func NewEngine(sources []Source, opts Options, logger *zap.Logger) *Engine {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.SourceTimeout <= 0 || opts.SourceTimeout > opts.Timeout {
		opts.SourceTimeout = opts.Timeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 250 * time.Millisecond
	}
	e := &Engine{sources: sources, opts: opts, metrics: newEngineMetrics(opts.MeterProvider), logger: logger}
	if opts.CacheTTL > 0 && opts.CacheSize > 0 {
		e.cache = expirable.NewLRU[string, Verdict](opts.CacheSize, nil, opts.CacheTTL)
	}
	return e
}

// Thresholds returns the score cut-offs in use.
func (e *Engine) Thresholds() Thresholds { return e.opts.Thresholds }

// Purge drops every cached verdict.
func (e *Engine) Purge() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

type outcome struct {
	partial Partial
	err     error
	skipped bool
}

// Evaluate scores fp. It fails with a ScoringUnavailable error when no source
// produced a result; it never invents a score in that case.
func (e *Engine) Evaluate(ctx context.Context, fp normalizer.Fingerprint) (Verdict, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(fp.Key()); ok {
			e.logger.Debug("Verdict served from cache", zap.String("kind", string(fp.Kind)))
			e.metrics.cacheHits.Add(ctx, 1)
			return cloneVerdict(v), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	outcomes := make([]outcome, len(e.sources))
	var g errgroup.Group
	for i, src := range e.sources {
		g.Go(func() error {
			started := time.Now()
			p, err := e.callSource(ctx, src, fp)
			if !errors.Is(err, ErrNotApplicable) {
				e.metrics.recordSource(ctx, src.Name(), started, err != nil)
			}
			switch {
			case errors.Is(err, ErrNotApplicable):
				outcomes[i] = outcome{skipped: true}
			case err != nil:
				e.logger.Warn("Scoring source failed",
					zap.String("source", src.Name()),
					zap.String("kind", string(fp.Kind)),
					zap.Error(err))
				outcomes[i] = outcome{err: err}
			default:
				outcomes[i] = outcome{partial: p}
			}
			return nil
		})
	}
	_ = g.Wait()

	v, err := e.combine(outcomes)
	if err != nil {
		return Verdict{}, err
	}
	e.metrics.recordVerdict(ctx, v)
	if e.cache != nil && !v.Degraded {
		e.cache.Add(fp.Key(), cloneVerdict(v))
	}
	return v, nil
}

func (e *Engine) callSource(ctx context.Context, src Source, fp normalizer.Fingerprint) (Partial, error) {
	op := func() (Partial, error) {
		p, err := e.attempt(ctx, src, fp)
		if err != nil && !IsTransient(err) {
			return p, backoff.Permanent(err)
		}
		return p, err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = e.opts.RetryDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, 1), ctx)
	return backoff.RetryWithData(op, policy)
}

type scoreResult struct {
	partial Partial
	err     error
}

// attempt makes one call bounded by SourceTimeout. A source that ignores its
// context is abandoned at the deadline; its late answer is discarded.
func (e *Engine) attempt(ctx context.Context, src Source, fp normalizer.Fingerprint) (Partial, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.opts.SourceTimeout)
	defer cancel()

	done := make(chan scoreResult, 1)
	go func() {
		p, err := src.Score(attemptCtx, fp)
		done <- scoreResult{partial: p, err: err}
	}()

	select {
	case r := <-done:
		return r.partial, r.err
	case <-attemptCtx.Done():
		return Partial{}, Transient(fmt.Errorf("source %s did not answer in time: %w", src.Name(), attemptCtx.Err()))
	}
}

func (e *Engine) combine(outcomes []outcome) (Verdict, error) {
	var (
		best        int
		succeeded   int
		failed      int
		aboveSusp   int
		reasons     []string
		seen        = map[string]bool{}
		lastFailure error
	)
	for _, o := range outcomes {
		switch {
		case o.skipped:
			continue
		case o.err != nil:
			failed++
			lastFailure = o.err
			continue
		}
		succeeded++
		score := ClampScore(o.partial.Score)
		if score > best {
			best = score
		}
		if score >= e.opts.Thresholds.Suspicious {
			aboveSusp++
		}
		for _, r := range o.partial.Reasons {
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			reasons = append(reasons, r)
		}
	}

	if succeeded == 0 {
		if lastFailure == nil {
			lastFailure = errors.New("no scoring source accepts this input")
		}
		return Verdict{}, apperr.ScoringUnavailable(lastFailure)
	}

	score := best
	if aboveSusp >= 2 {
		score = ClampScore(score + corroborationBonus)
	}
	status := e.opts.Thresholds.StatusFor(score)
	if status != models.StatusSafe && len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("Combined risk score %d reached the %s threshold.", score, status))
	}
	degraded := failed > 0
	if degraded {
		reasons = append(reasons, degradedReason)
	}
	if reasons == nil {
		reasons = []string{}
	}

	return Verdict{
		Status:   status,
		Score:    score,
		Summary:  summaryFor(status),
		Reasons:  reasons,
		Degraded: degraded,
	}, nil
}

func cloneVerdict(v Verdict) Verdict {
	v.Reasons = append([]string(nil), v.Reasons...)
	if v.Reasons == nil {
		v.Reasons = []string{}
	}
	return v
}
