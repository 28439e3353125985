package providers

import (
	"math/rand/v2"
	"time"
)

// fullJitter is a backoff.BackOff that waits a uniformly random duration
// between zero and min(max, base*2^attempt).
type fullJitter struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

func newFullJitter(base, max time.Duration) *fullJitter {
	if max < base {
		max = base
	}
	return &fullJitter{base: base, max: max}
}

// NextBackOff implements backoff.BackOff.
func (b *fullJitter) NextBackOff() time.Duration {
	ceiling := b.max
	if b.attempt < 32 {
		if d := b.base << b.attempt; d > 0 && d < b.max {
			ceiling = d
		}
	}
	b.attempt++
	return rand.N(ceiling + 1)
}

// Reset implements backoff.BackOff.
func (b *fullJitter) Reset() {
	b.attempt = 0
}
