package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/tagstream/pkg/lineproto"
	"mercator-hq/tagstream/pkg/metric"
	"mercator-hq/tagstream/pkg/resolver"
	"mercator-hq/tagstream/pkg/tagcache"
	"mercator-hq/tagstream/pkg/telemetry/logging"
	"mercator-hq/tagstream/pkg/telemetry/tracing"
)

const (
	// DefaultWorkers is the worker pool size when none is configured.
	DefaultWorkers = 10

	// DefaultLookupTimeout bounds a lookup when no timeout is configured.
	DefaultLookupTimeout = 30 * time.Second

	// cancelGrace is how long Close waits for the writer once lookups have
	// been cancelled.
	cancelGrace = 2 * time.Second
)

// Lookup outcomes reported to the Observer.
const (
	OutcomeResolved = "resolved"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// Resolvers finds the resolver for a metric namespace. *resolver.Registry
// implements it.
type Resolvers interface {
	Lookup(namespace string) (resolver.ResourceResolver, error)
}

// RecordWriter writes enriched metrics and reports how many records were
// produced. *lineproto.Encoder implements it.
type RecordWriter interface {
	Encode(m metric.Enriched) (int, error)
}

// Observer receives pipeline statistics. *metrics.Collector implements it.
type Observer interface {
	RecordLineRead()
	RecordDecodeError()
	RecordLookup(namespace, outcome string, seconds float64)
	RecordDropped(namespace, reason string)
	AddInFlight(delta int)
	RecordRecordsWritten(n int)
}

// Config configures a Scheduler and the Pipeline around it.
type Config struct {
	// Workers is the number of concurrent lookups. Default DefaultWorkers.
	Workers int

	// LookupTimeout bounds the wait for one metric's tags. Default
	// DefaultLookupTimeout.
	LookupTimeout time.Duration

	// MaxLineBytes is the longest input line the pipeline accepts.
	// Default DefaultMaxLineBytes.
	MaxLineBytes int

	// Precision is the unit of numeric input timestamps.
	Precision lineproto.Precision

	// ShutdownTimeout bounds how long Pipeline.Run waits for in-flight
	// lookups after the input ends. Default DefaultLookupTimeout.
	ShutdownTimeout time.Duration

	// Observer receives pipeline statistics. Optional.
	Observer Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Tracer starts a span per lookup. Defaults to the global tracer.
	Tracer trace.Tracer
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = DefaultLookupTimeout
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
	if c.Precision == "" {
		c.Precision = lineproto.PrecisionAuto
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultLookupTimeout
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer("mercator-hq/tagstream/enrichment")
	}
}

// task is one metric waiting for a worker.
type task struct {
	metric metric.RawMetric
	line   int
}

// Scheduler enriches metrics on a fixed pool of workers.
//
// Submit hands a metric to an idle worker and blocks while every worker is
// busy. Each worker resolves the metric's resource through the tag cache and
// passes the enriched metric to a single emitter goroutine that owns the
// RecordWriter. Metrics whose lookup fails are logged and dropped; output
// order is completion order.
type Scheduler struct {
	resolvers Resolvers
	cache     *tagcache.Cache
	out       RecordWriter

	lookupTimeout time.Duration
	cancelGrace   time.Duration
	observer      Observer
	logger        *slog.Logger
	tracer        trace.Tracer

	// ctx is the parent of every lookup. It is cancelled when Close gives
	// up waiting for in-flight work.
	ctx    context.Context
	cancel context.CancelFunc

	tasks   chan task
	results chan metric.Enriched
	workers sync.WaitGroup
	emitted chan struct{}

	mu        sync.RWMutex
	closed    bool
	quit      chan struct{}
	closeOnce sync.Once

	failed   chan struct{}
	writeErr error
}

// NewScheduler starts cfg.Workers workers and the emitter.
func NewScheduler(cfg Config, resolvers Resolvers, cache *tagcache.Cache, out RecordWriter) *Scheduler {
	cfg.setDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		resolvers:     resolvers,
		cache:         cache,
		out:           out,
		lookupTimeout: cfg.LookupTimeout,
		cancelGrace:   cancelGrace,
		observer:      cfg.Observer,
		logger:        cfg.Logger.With("component", "enrichment"),
		tracer:        cfg.Tracer,
		ctx:           ctx,
		cancel:        cancel,
		tasks:         make(chan task),
		results:       make(chan metric.Enriched, cfg.Workers),
		emitted:       make(chan struct{}),
		quit:          make(chan struct{}),
		failed:        make(chan struct{}),
	}

	for i := range cfg.Workers {
		s.workers.Add(1)
		go s.worker(i)
	}
	go func() {
		s.workers.Wait()
		close(s.results)
	}()
	go s.emit()

	s.logger.Debug("scheduler started", "workers", cfg.Workers, "lookup_timeout", cfg.LookupTimeout)
	return s
}

// Submit hands m to a worker, blocking until one is free. The line number
// recorded in ctx with logging.WithLine is carried into the worker's logs.
//
// Submit returns ErrSchedulerClosed after Close, ctx.Err() if ctx is done
// first, and the output error once the RecordWriter has failed.
func (s *Scheduler) Submit(ctx context.Context, m metric.RawMetric) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	t := task{metric: m, line: logging.GetLine(ctx)}
	select {
	case s.tasks <- t:
		return nil
	case <-s.failed:
		return s.writeErr
	case <-s.quit:
		return ErrSchedulerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting metrics and waits for in-flight lookups to be
// written. If ctx is done first, outstanding lookups are cancelled and their
// metrics dropped; if the writer is then still blocked after a short grace
// period, Close gives up and returns ErrOutputStalled. Otherwise Close
// returns the output error, if any. It is safe to call more than once.
func (s *Scheduler) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.mu.Lock()
		s.closed = true
		close(s.tasks)
		s.mu.Unlock()
	})

	select {
	case <-s.emitted:
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout reached, cancelling in-flight lookups")
		s.cancel()
		select {
		case <-s.emitted:
		case <-time.After(s.cancelGrace):
			s.logger.Error("output stalled, abandoning pending records", "grace", s.cancelGrace)
			return ErrOutputStalled
		}
	}
	s.cancel()

	return s.writeErr
}

func (s *Scheduler) worker(id int) {
	defer s.workers.Done()

	for t := range s.tasks {
		if m, ok := s.process(id, t); ok {
			s.results <- m
		}
	}
}

// emit writes results until the workers are gone. After the first write
// failure every later result is dropped.
func (s *Scheduler) emit() {
	defer close(s.emitted)

	for m := range s.results {
		if s.writeErr != nil {
			s.observer.RecordDropped(m.Namespace, "output")
			continue
		}

		n, err := s.out.Encode(m)
		s.observer.RecordRecordsWritten(n)
		switch {
		case err == nil:
		case errors.Is(err, lineproto.ErrWrite):
			s.logger.Error("output write failed", "error", err)
			s.writeErr = err
			close(s.failed)
		default:
			s.logger.Warn("skipped datapoints", "metric", m.Name, "namespace", m.Namespace, "error", err)
		}
	}
}

// process enriches one metric. It reports false when the metric is dropped.
func (s *Scheduler) process(worker int, t task) (metric.Enriched, bool) {
	m := t.metric
	ctx := logging.WithLine(s.ctx, t.line)
	ctx = logging.WithWorker(ctx, worker)
	ctx = logging.WithNamespace(ctx, m.Namespace)

	s.observer.AddInFlight(1)
	defer s.observer.AddInFlight(-1)

	start := time.Now()
	tags, id, err := s.lookup(ctx, m)
	outcome := outcomeOf(tags, err)
	s.observer.RecordLookup(m.Namespace, outcome, time.Since(start).Seconds())

	if err != nil {
		if id.ID != "" {
			ctx = logging.WithResourceID(ctx, id.ID)
		}
		s.observer.RecordDropped(m.Namespace, outcome)
		s.logger.ErrorContext(ctx, "dropping metric", "metric", m.Name, "error", err)
		return metric.Enriched{}, false
	}

	return metric.Enriched{RawMetric: m, Tags: tags}, true
}

// lookup resolves the tags for m. A namespace without a resolver, a metric
// without an identifier and a resource the provider cannot find all yield an
// empty TagSet. Every other failure is returned as a *resolver.ResolverError.
func (s *Scheduler) lookup(ctx context.Context, m metric.RawMetric) (tags metric.TagSet, id resolver.ResourceIdentifier, err error) {
	ctx, span := s.tracer.Start(ctx, "enrichment.lookup",
		trace.WithAttributes(attribute.String(tracing.AttrNamespace, m.Namespace)),
	)
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "resolver panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			tags = nil
			err = &resolver.ResolverError{
				Namespace:  m.Namespace,
				ResourceID: id.ID,
				Cause:      fmt.Errorf("%w: %v", ErrResolverPanic, r),
			}
		}
		tracing.SetLookupOutcome(span, outcomeOf(tags, err), len(tags))
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		span.End()
	}()

	res, err := s.resolvers.Lookup(m.Namespace)
	switch {
	case errors.Is(err, resolver.ErrUnsupportedNamespace):
		s.logger.DebugContext(ctx, "no resolver for namespace")
		return metric.TagSet{}, id, nil
	case err != nil:
		return nil, id, &resolver.ResolverError{Namespace: m.Namespace, Cause: err}
	}

	id, err = res.ResolveIdentifier(m.Namespace, m.Dimensions)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		s.logger.DebugContext(ctx, "metric carries no resource identifier", "metric", m.Name)
		return metric.TagSet{}, id, nil
	case err != nil:
		return nil, id, &resolver.ResolverError{Namespace: m.Namespace, Cause: err}
	}
	tracing.SetLookupAttributes(span, m.Namespace, id.ID)

	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	key := tagcache.NewResourceKey(m.Namespace, id.Identity)
	tags, err = s.cache.GetOrFetch(lctx, key, func(fctx context.Context) (metric.TagSet, error) {
		return res.FetchTags(fctx, m.Namespace, id)
	})
	switch {
	case err == nil:
		return tags, id, nil
	case errors.Is(err, resolver.ErrNotFound):
		s.logger.DebugContext(logging.WithResourceID(ctx, id.ID), "resource not found")
		return metric.TagSet{}, id, nil
	case lctx.Err() != nil && ctx.Err() == nil:
		err = fmt.Errorf("%w after %s", ErrLookupTimeout, s.lookupTimeout)
	}

	var rerr *resolver.ResolverError
	if errors.As(err, &rerr) {
		return nil, id, err
	}
	return nil, id, &resolver.ResolverError{Namespace: m.Namespace, ResourceID: id.ID, Cause: err}
}

func outcomeOf(tags metric.TagSet, err error) string {
	switch {
	case err == nil && len(tags) > 0:
		return OutcomeResolved
	case err == nil:
		return OutcomeEmpty
	case errors.Is(err, ErrLookupTimeout):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}

type nopObserver struct{}

func (nopObserver) RecordLineRead() {}
func (nopObserver) RecordDecodeError() {}
func (nopObserver) RecordLookup(string, string, float64) {}
func (nopObserver) RecordDropped(string, string) {}
func (nopObserver) AddInFlight(int) {}
func (nopObserver) RecordRecordsWritten(int) {}
