package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/fetcher"
	"github.com/rohmanhakim/crawlgate/internal/metadata/metadatatest"
	"github.com/rohmanhakim/crawlgate/internal/robots"
	"github.com/rohmanhakim/crawlgate/internal/scheduler"
	"github.com/rohmanhakim/crawlgate/pkg/failure"
	"github.com/rohmanhakim/crawlgate/pkg/limiter"
	"github.com/rohmanhakim/crawlgate/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func defaultSchedulerParam() scheduler.SchedulerParam {
	return scheduler.NewSchedulerParam(time.Hour, time.Minute)
}

// TestSubmitUrlForAdmission_RobotsAllowed_ConsumesSlot verifies that an
// allowed URL goes through the gate.
func TestSubmitUrlForAdmission_RobotsAllowed_ConsumesSlot(t *testing.T) {
	// GIVEN: robots allows the URL and the gate grants
	policies := newPolicyCheckerMockForTest(t)
	policies.OnCheckAllowed(mock.Anything, robots.Decision{Allowed: true, Code: robots.NoMatchingRules})
	gate := newGateMockForTest(t)
	gate.OnTryAcquire("https://example.com/page", limiter.AcquireResult{Granted: true})
	sink := metadatatest.NewRecordingSink()
	s := scheduler.NewScheduler(policies, gate, sink, defaultSchedulerParam(), nil)

	// WHEN: submitting the URL
	verdict := s.SubmitUrlForAdmission(context.Background(), "https://example.com/page")

	// THEN: it is permitted and granted
	assert.True(t, verdict.Permitted)
	assert.True(t, verdict.Granted)
	assert.Equal(t, scheduler.ReasonAdmitted, verdict.Reason)
	assert.Zero(t, verdict.RetryAfter)
	gate.AssertNumberOfCalls(t, "TryAcquire", 1)

	// AND: the admission is recorded under the origin
	admissions := sink.Admissions()
	require.Len(t, admissions, 1)
	assert.Equal(t, "https://example.com", admissions[0].Origin)
	assert.True(t, admissions[0].Granted)
}

// TestSubmitUrlForAdmission_RobotsDisallowed_SkipsGate verifies that a
// disallowed URL never consumes an admission slot.
func TestSubmitUrlForAdmission_RobotsDisallowed_SkipsGate(t *testing.T) {
	// GIVEN: robots disallows the URL
	policies := newPolicyCheckerMockForTest(t)
	policies.OnCheckAllowed(mock.Anything, robots.Decision{
		Allowed:     false,
		Code:        robots.DisallowedByRobots,
		MatchedRule: "Disallow: /admin",
	})
	gate := newGateMockForTest(t)
	sink := metadatatest.NewRecordingSink()
	s := scheduler.NewScheduler(policies, gate, sink, defaultSchedulerParam(), nil)

	// WHEN: submitting the URL
	verdict := s.SubmitUrlForAdmission(context.Background(), "https://example.com/admin")

	// THEN: it is rejected without touching the gate
	assert.False(t, verdict.Permitted)
	assert.False(t, verdict.Granted)
	assert.Equal(t, scheduler.ReasonDisallowed, verdict.Reason)
	assert.Equal(t, "Disallow: /admin", verdict.Robots.MatchedRule)
	gate.AssertNotCalled(t, "TryAcquire", mock.Anything)
	assert.Empty(t, sink.Admissions())
}

// TestSubmitUrlForAdmission_RateLimited verifies that a denied slot carries
// the gate's retry-after.
func TestSubmitUrlForAdmission_RateLimited(t *testing.T) {
	policies := newPolicyCheckerMockForTest(t)
	policies.OnCheckAllowed(mock.Anything, robots.Decision{Allowed: true})
	gate := newGateMockForTest(t)
	gate.OnTryAcquire(mock.Anything, limiter.AcquireResult{RetryAfter: 400 * time.Millisecond})
	sink := metadatatest.NewRecordingSink()
	s := scheduler.NewScheduler(policies, gate, sink, defaultSchedulerParam(), nil)

	verdict := s.SubmitUrlForAdmission(context.Background(), "https://example.com/page")

	assert.True(t, verdict.Permitted)
	assert.False(t, verdict.Granted)
	assert.Equal(t, scheduler.ReasonRateLimited, verdict.Reason)
	assert.Equal(t, 400*time.Millisecond, verdict.RetryAfter)
	require.Len(t, sink.Admissions(), 1)
	assert.False(t, sink.Admissions()[0].Granted)
}

func TestSubmitUrlForAgent_PassesAgent(t *testing.T) {
	policies := newPolicyCheckerMockForTest(t)
	policies.On("CheckAllowed", "https://example.com/", "otherbot").Return(robots.Decision{Allowed: false})
	gate := newGateMockForTest(t)
	s := scheduler.NewScheduler(policies, gate, nil, defaultSchedulerParam(), nil)

	verdict := s.SubmitUrlForAgent(context.Background(), "https://example.com/", "otherbot")

	assert.False(t, verdict.Permitted)
	policies.AssertExpectations(t)
}

func TestPurgeStale_RecordsPurge(t *testing.T) {
	policies := newPolicyCheckerMockForTest(t)
	gate := newGateMockForTest(t)
	gate.On("PurgeStale", time.Hour).Return(3)
	gate.On("Len").Return(7)
	sink := metadatatest.NewRecordingSink()
	s := scheduler.NewScheduler(policies, gate, sink, defaultSchedulerParam(), nil)

	removed := s.PurgeStale()

	assert.Equal(t, 3, removed)
	require.Len(t, sink.Purges(), 1)
	assert.Equal(t, metadatatest.PurgeEvent{Removed: 3, Remaining: 7}, sink.Purges()[0])
}

func TestRunJanitor_PurgesUntilCancelled(t *testing.T) {
	policies := newPolicyCheckerMockForTest(t)
	gate := newGateMockForTest(t)
	gate.On("PurgeStale", time.Hour).Return(0)
	gate.On("Len").Return(0)
	sink := metadatatest.NewRecordingSink()
	s := scheduler.NewScheduler(policies, gate, sink, scheduler.NewSchedulerParam(time.Hour, 5*time.Millisecond), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sink.Purges()) >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancellation")
	}
}

type staticFetcher struct {
	body string
}

func (f staticFetcher) FetchDocument(ctx context.Context, fetchURL string) (fetcher.FetchResult, failure.ClassifiedError) {
	return fetcher.NewFetchResultForTest(fetchURL, []byte(f.body), 200, "text/plain"), nil
}

// TestScheduler_WithRealComponents runs robots and the fixed interval gate
// together on a manual clock.
func TestScheduler_WithRealComponents(t *testing.T) {
	clock := timeutil.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := metadatatest.NewRecordingSink()
	policies := robots.NewPolicyCache(robots.PolicyParam{
		UserAgent:     "crawlgate/1.0",
		CacheTTL:      time.Hour,
		CacheCapacity: 10,
	}, staticFetcher{body: "User-agent: *\nDisallow: /admin\n"}, sink, clock, nil)
	gate := limiter.NewFixedIntervalGate(limiter.NewGateParam(1, 1, 4), clock)
	s := scheduler.NewScheduler(policies, gate, sink, defaultSchedulerParam(), nil)
	ctx := context.Background()

	first := s.SubmitUrlForAdmission(ctx, "https://example.com/a")
	assert.True(t, first.Granted)

	blocked := s.SubmitUrlForAdmission(ctx, "https://example.com/admin/x")
	assert.False(t, blocked.Permitted)

	clock.Advance(500 * time.Millisecond)
	limited := s.SubmitUrlForAdmission(ctx, "https://example.com/b")
	assert.False(t, limited.Granted)
	assert.Equal(t, 500*time.Millisecond, limited.RetryAfter)
	assert.Equal(t, 500*time.Millisecond, s.WaitTime("https://example.com/c"))

	clock.Advance(500 * time.Millisecond)
	assert.True(t, s.SubmitUrlForAdmission(ctx, "https://example.com/b").Granted)
	assert.True(t, s.TryAcquire("https://other.example/").Granted)
}
