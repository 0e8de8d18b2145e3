package anthropic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptBackoff_DoublesAndCaps(t *testing.T) {
	b := newAttemptBackoff(1*time.Second, 5*time.Second)

	// Attempt n waits base*2^n plus up to 1s of jitter, capped at max.
	d0 := b.NextBackOff()
	assert.GreaterOrEqual(t, d0, 1*time.Second)
	assert.Less(t, d0, 2*time.Second)

	d1 := b.NextBackOff()
	assert.GreaterOrEqual(t, d1, 2*time.Second)
	assert.Less(t, d1, 3*time.Second)

	d2 := b.NextBackOff()
	assert.GreaterOrEqual(t, d2, 4*time.Second)
	assert.LessOrEqual(t, d2, 5*time.Second)

	// 8s base exceeds the cap regardless of jitter.
	d3 := b.NextBackOff()
	assert.Equal(t, 5*time.Second, d3)
}

func TestAttemptBackoff_Reset(t *testing.T) {
	b := newAttemptBackoff(1*time.Second, 10*time.Second)
	b.NextBackOff()
	b.NextBackOff()
	b.Reset()

	d := b.NextBackOff()
	assert.Less(t, d, 2*time.Second)
}
