package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestComputeJitter(t *testing.T) {
	tests := []struct {
		name string
		max  time.Duration
		rng  *rand.Rand
	}{
		{name: "max=0 returns 0", max: 0, rng: rand.New(rand.NewSource(1))},
		{name: "negative max returns 0", max: -100 * time.Millisecond, rng: rand.New(rand.NewSource(1))},
		{name: "nil rng returns 0", max: time.Second, rng: nil},
		{name: "positive max returns value within range", max: time.Second, rng: rand.New(rand.NewSource(42))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeJitter(tt.max, tt.rng)

			if tt.max <= 0 || tt.rng == nil {
				if got != 0 {
					t.Errorf("ComputeJitter() = %v, want 0", got)
				}
				return
			}

			if got < 0 || got >= tt.max {
				t.Errorf("ComputeJitter() = %v, want in [0, %v)", got, tt.max)
			}
		})
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	param := NewBackoffParam(200*time.Millisecond, 2.0, 2*time.Second)

	tests := []struct {
		name         string
		backoffCount int
		want         time.Duration
	}{
		{name: "first attempt uses initial duration", backoffCount: 1, want: 200 * time.Millisecond},
		{name: "second attempt doubles", backoffCount: 2, want: 400 * time.Millisecond},
		{name: "third attempt quadruples", backoffCount: 3, want: 800 * time.Millisecond},
		{name: "capped at max", backoffCount: 10, want: 2 * time.Second},
		{name: "zero count treated as first", backoffCount: 0, want: 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExponentialBackoffDelay(tt.backoffCount, 0, rand.New(rand.NewSource(1)), param)
			if got != tt.want {
				t.Errorf("ExponentialBackoffDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExponentialBackoffDelay_JitterBounds(t *testing.T) {
	param := NewBackoffParam(time.Second, 2.0, 30*time.Second)
	jitter := 50 * time.Millisecond
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		got := ExponentialBackoffDelay(3, jitter, rng, param)
		if got < 4*time.Second || got >= 4*time.Second+jitter {
			t.Fatalf("ExponentialBackoffDelay() = %v, want in [4s, 4.05s)", got)
		}
	}
}
