package enrichment

import "errors"

var (
	// ErrLookupTimeout reports a tag lookup that did not finish within the
	// scheduler's lookup timeout. The metric is dropped.
	ErrLookupTimeout = errors.New("tag lookup timed out")

	// ErrSchedulerClosed is returned by Submit after Close has been called.
	ErrSchedulerClosed = errors.New("scheduler closed")

	// ErrOutputStalled is returned by Close when the output writer is still
	// blocked after in-flight lookups were cancelled. Pending records are
	// abandoned.
	ErrOutputStalled = errors.New("output stalled")

	// ErrResolverPanic wraps a panic raised while resolving a metric.
	ErrResolverPanic = errors.New("resolver panicked")
)
