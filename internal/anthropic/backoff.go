package anthropic

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// attemptBackoff yields min(base * 2^attempt + jitter, max), with jitter
// drawn uniformly from [0, 1s) so simultaneous failures don't retry in
// lockstep. It plugs into backoff.Retry but keeps the delay formula exact.
type attemptBackoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

var _ backoff.BackOff = (*attemptBackoff)(nil)

func newAttemptBackoff(base, max time.Duration) *attemptBackoff {
	return &attemptBackoff{base: base, max: max}
}

func (b *attemptBackoff) NextBackOff() time.Duration {
	delay := b.base*(1<<b.attempt) + time.Duration(rand.Int63n(int64(time.Second)))
	if delay > b.max {
		delay = b.max
	}
	b.attempt++
	return delay
}

func (b *attemptBackoff) Reset() {
	b.attempt = 0
}
