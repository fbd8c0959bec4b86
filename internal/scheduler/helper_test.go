package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/robots"
	"github.com/rohmanhakim/crawlgate/pkg/limiter"
	"github.com/stretchr/testify/mock"
)

type policyCheckerMock struct {
	mock.Mock
}

func (p *policyCheckerMock) CheckAllowed(ctx context.Context, rawURL string, agentToken string) robots.Decision {
	args := p.Called(rawURL, agentToken)
	decision, _ := args.Get(0).(robots.Decision)
	if decision.URL == "" {
		decision.URL = rawURL
	}
	return decision
}

// OnCheckAllowed sets up the mock to return decision for rawURL.
// Use mock.Anything to match any URL.
func (p *policyCheckerMock) OnCheckAllowed(rawURL interface{}, decision robots.Decision) *mock.Call {
	return p.On("CheckAllowed", rawURL, mock.Anything).Return(decision)
}

// newPolicyCheckerMockForTest does not set any default expectation.
func newPolicyCheckerMockForTest(t *testing.T) *policyCheckerMock {
	t.Helper()
	return new(policyCheckerMock)
}

type gateMock struct {
	mock.Mock
}

func (g *gateMock) TryAcquire(rawURL string) limiter.AcquireResult {
	args := g.Called(rawURL)
	return args.Get(0).(limiter.AcquireResult)
}

func (g *gateMock) WaitTime(rawURL string) time.Duration {
	args := g.Called(rawURL)
	return args.Get(0).(time.Duration)
}

func (g *gateMock) PurgeStale(maxAge time.Duration) int {
	args := g.Called(maxAge)
	return args.Int(0)
}

func (g *gateMock) Len() int {
	args := g.Called()
	return args.Int(0)
}

func (g *gateMock) OnTryAcquire(rawURL interface{}, result limiter.AcquireResult) *mock.Call {
	return g.On("TryAcquire", rawURL).Return(result)
}

func newGateMockForTest(t *testing.T) *gateMock {
	t.Helper()
	return new(gateMock)
}
