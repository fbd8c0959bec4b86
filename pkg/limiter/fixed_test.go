package limiter_test

import (
	"testing"
	"time"

	"github.com/rohmanhakim/crawlgate/pkg/limiter"
	"github.com/rohmanhakim/crawlgate/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixedGate(rps float64) (*limiter.FixedIntervalGate, *timeutil.ManualClock) {
	clock := timeutil.NewManualClock(epoch)
	return limiter.NewFixedIntervalGate(limiter.NewGateParam(rps, 1, 4), clock), clock
}

func TestGateParam_MinInterval(t *testing.T) {
	tests := []struct {
		name string
		rps  float64
		want time.Duration
	}{
		{name: "one per second", rps: 1, want: time.Second},
		{name: "two per second", rps: 2, want: 500 * time.Millisecond},
		{name: "fractional rate", rps: 0.5, want: 2 * time.Second},
		{name: "zero disables", rps: 0, want: 0},
		{name: "negative disables", rps: -3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, limiter.NewGateParam(tt.rps, 1, 1).MinInterval())
		})
	}
}

func TestFixedIntervalGate_ScenarioOneRequestPerSecond(t *testing.T) {
	gate, clock := newFixedGate(1)
	url := "https://example.com/page"

	first := gate.TryAcquire(url)
	assert.True(t, first.Granted)
	assert.Zero(t, first.RetryAfter)

	clock.Advance(500 * time.Millisecond)
	second := gate.TryAcquire(url)
	assert.False(t, second.Granted)
	assert.Equal(t, 500*time.Millisecond, second.RetryAfter)

	clock.Advance(500 * time.Millisecond)
	third := gate.TryAcquire(url)
	assert.True(t, third.Granted)
	assert.Zero(t, third.RetryAfter)
}

func TestFixedIntervalGate_DenyDoesNotMoveTheWindow(t *testing.T) {
	gate, clock := newFixedGate(1)
	url := "https://example.com/"

	require.True(t, gate.TryAcquire(url).Granted)

	for i := 0; i < 9; i++ {
		clock.Advance(100 * time.Millisecond)
		result := gate.TryAcquire(url)
		require.False(t, result.Granted)
		assert.Equal(t, time.Second-time.Duration(i+1)*100*time.Millisecond, result.RetryAfter)
	}

	clock.Advance(100 * time.Millisecond)
	assert.True(t, gate.TryAcquire(url).Granted)
}

func TestFixedIntervalGate_SameOriginDifferentPaths(t *testing.T) {
	gate, _ := newFixedGate(1)

	require.True(t, gate.TryAcquire("https://example.com/a").Granted)

	result := gate.TryAcquire("HTTPS://EXAMPLE.COM:443/b?q=1")
	assert.False(t, result.Granted, "same origin spelled differently shares a record")
	assert.Equal(t, time.Second, result.RetryAfter)
}

func TestFixedIntervalGate_OriginsAreIndependent(t *testing.T) {
	gate, _ := newFixedGate(1)

	assert.True(t, gate.TryAcquire("https://a.example/").Granted)
	assert.True(t, gate.TryAcquire("https://b.example/").Granted)
	assert.True(t, gate.TryAcquire("http://a.example/").Granted, "scheme is part of the origin")
	assert.True(t, gate.TryAcquire("https://a.example:8443/").Granted, "port is part of the origin")
	assert.Equal(t, 4, gate.Len())
}

func TestFixedIntervalGate_DisabledAlwaysGrants(t *testing.T) {
	gate, _ := newFixedGate(0)

	for i := 0; i < 5; i++ {
		result := gate.TryAcquire("https://example.com/")
		assert.True(t, result.Granted)
		assert.Zero(t, result.RetryAfter)
	}
	assert.Zero(t, gate.Len())
	assert.Zero(t, gate.WaitTime("https://example.com/"))
}

func TestFixedIntervalGate_UnparseableURLStillGated(t *testing.T) {
	gate, _ := newFixedGate(1)

	assert.True(t, gate.TryAcquire("not a url").Granted)
	assert.False(t, gate.TryAcquire("NOT A URL").Granted)
}

func TestFixedIntervalGate_WaitTimeIsReadOnly(t *testing.T) {
	gate, clock := newFixedGate(2)
	url := "https://example.com/"

	assert.Zero(t, gate.WaitTime(url))
	assert.Zero(t, gate.Len(), "WaitTime must not create records")

	require.True(t, gate.TryAcquire(url).Granted)
	clock.Advance(200 * time.Millisecond)

	assert.Equal(t, 300*time.Millisecond, gate.WaitTime(url))
	assert.Equal(t, 300*time.Millisecond, gate.WaitTime(url))

	clock.Advance(300 * time.Millisecond)
	assert.Zero(t, gate.WaitTime(url))
}

func TestFixedIntervalGate_ClockMovingBackwards(t *testing.T) {
	gate, clock := newFixedGate(1)
	url := "https://example.com/"

	require.True(t, gate.TryAcquire(url).Granted)
	clock.Set(epoch.Add(-5 * time.Second))

	result := gate.TryAcquire(url)
	assert.False(t, result.Granted)
	assert.Equal(t, time.Second, result.RetryAfter)
}

func TestFixedIntervalGate_PurgeStale(t *testing.T) {
	gate, clock := newFixedGate(1)

	require.True(t, gate.TryAcquire("https://old.example/").Granted)
	clock.Advance(30 * time.Minute)
	require.True(t, gate.TryAcquire("https://recent.example/").Granted)
	clock.Advance(31 * time.Minute)

	removed := gate.PurgeStale(time.Hour)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, gate.Len())
	grants := limiter.LastGrants(gate)
	assert.Contains(t, grants, "https://recent.example")
	assert.NotContains(t, grants, "https://old.example")
	assert.Equal(t, epoch.Add(30*time.Minute), grants["https://recent.example"])

	// exactly maxAge old is not stale
	clock.Set(epoch.Add(30*time.Minute + time.Hour))
	assert.Zero(t, gate.PurgeStale(time.Hour))

	clock.Advance(time.Nanosecond)
	assert.Equal(t, 1, gate.PurgeStale(time.Hour))
	assert.Zero(t, gate.Len())
}

func TestFixedIntervalGate_PurgedOriginStartsFresh(t *testing.T) {
	gate, clock := newFixedGate(0.001)
	url := "https://example.com/"

	require.True(t, gate.TryAcquire(url).Granted)
	clock.Advance(2 * time.Minute)
	require.False(t, gate.TryAcquire(url).Granted)

	require.Equal(t, 1, gate.PurgeStale(time.Minute))
	assert.True(t, gate.TryAcquire(url).Granted)
}
