package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// Exponential Backoff parameters
// example:
//
//	initialDuration := 200 * time.Millisecond // Start with 200ms
//	multiplier := 2.0                         // Double each time
//	maxDuration := 2 * time.Second            // Cap at 2s
type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) BackoffParam {
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

func (b BackoffParam) InitialDuration() time.Duration {
	return b.initialDuration
}

func (b BackoffParam) Multiplier() float64 {
	return b.multiplier
}

func (b BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}

// ExponentialBackoffDelay returns initial * multiplier^(count-1), capped at
// the max duration, plus up to jitter of random variance.
// Counts below 1 are treated as 1.
func ExponentialBackoffDelay(backoffCount int, jitter time.Duration, rng *rand.Rand, param BackoffParam) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	delay := float64(param.initialDuration) * math.Pow(param.multiplier, float64(backoffCount-1))
	if param.maxDuration > 0 && delay > float64(param.maxDuration) {
		delay = float64(param.maxDuration)
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay) + ComputeJitter(jitter, rng)
}

// ComputeJitter returns a pseudo-random duration in [0, max).
// Returns 0 when max <= 0 or rng is nil.
func ComputeJitter(max time.Duration, rng *rand.Rand) time.Duration {
	if max <= 0 || rng == nil {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}
