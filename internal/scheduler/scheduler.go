package scheduler

import (
	"context"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/logging"
	"github.com/rohmanhakim/crawlgate/internal/metadata"
	"github.com/rohmanhakim/crawlgate/internal/robots"
	"github.com/rohmanhakim/crawlgate/pkg/limiter"
	"github.com/rohmanhakim/crawlgate/pkg/urlutil"
	"go.uber.org/zap"
)

/*
 Scheduler is the admission choke point in front of a crawler.

 Admission guarantees:
 - robots.txt is consulted before the admission gate
 - a URL disallowed by robots.txt never consumes an admission slot
 - neither check can fail; both fail open on missing information

 Metadata emission is observational only and MUST NOT influence
 admission.

 Scheduler Responsibilities:
 - Combine the robots decision and the per-origin admission gate
 - Record every admission outcome
 - Purge idle admission records on a fixed interval
*/
type Scheduler struct {
	metadataSink metadata.MetadataSink
	policies     PolicyChecker
	gate         limiter.Gate
	param        SchedulerParam
	logger       *zap.Logger
}

// PolicyChecker is the robots side of admission.
type PolicyChecker interface {
	CheckAllowed(ctx context.Context, rawURL string, agentToken string) robots.Decision
}

func NewScheduler(
	policies PolicyChecker,
	gate limiter.Gate,
	metadataSink metadata.MetadataSink,
	param SchedulerParam,
	logger *zap.Logger,
) *Scheduler {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Scheduler{
		metadataSink: metadataSink,
		policies:     policies,
		gate:         gate,
		param:        param,
		logger:       logging.OrNop(logger).Named("scheduler"),
	}
}

// SubmitUrlForAdmission decides whether rawURL may be requested now using
// the default user agent.
func (s *Scheduler) SubmitUrlForAdmission(ctx context.Context, rawURL string) Verdict {
	return s.SubmitUrlForAgent(ctx, rawURL, "")
}

// SubmitUrlForAgent is SubmitUrlForAdmission for an explicit robots.txt agent.
func (s *Scheduler) SubmitUrlForAgent(ctx context.Context, rawURL string, agentToken string) Verdict {
	decision := s.policies.CheckAllowed(ctx, rawURL, agentToken)
	verdict := Verdict{
		URL:       rawURL,
		Permitted: decision.Allowed,
		Robots:    decision,
	}

	// Robots explicitly disallowed → terminal outcome, no slot consumed
	if !decision.Allowed {
		verdict.Reason = ReasonDisallowed
		s.logger.Debug("robots disallowed",
			zap.String("url", rawURL),
			zap.String("rule", decision.MatchedRule),
		)
		return verdict
	}

	result := s.gate.TryAcquire(rawURL)
	verdict.Granted = result.Granted
	verdict.RetryAfter = result.RetryAfter
	if result.Granted {
		verdict.Reason = ReasonAdmitted
	} else {
		verdict.Reason = ReasonRateLimited
	}

	s.metadataSink.RecordAdmission(urlutil.OriginKey(rawURL), result.Granted, result.RetryAfter)
	return verdict
}

// TryAcquire consults only the admission gate.
func (s *Scheduler) TryAcquire(rawURL string) limiter.AcquireResult {
	result := s.gate.TryAcquire(rawURL)
	s.metadataSink.RecordAdmission(urlutil.OriginKey(rawURL), result.Granted, result.RetryAfter)
	return result
}

// WaitTime reports how long rawURL's origin would have to wait without
// consuming a slot.
func (s *Scheduler) WaitTime(rawURL string) time.Duration {
	return s.gate.WaitTime(rawURL)
}

// PurgeStale removes admission records idle for longer than StaleAfter and
// returns how many were removed.
func (s *Scheduler) PurgeStale() int {
	removed := s.gate.PurgeStale(s.param.StaleAfter)
	remaining := s.gate.Len()
	s.metadataSink.RecordPurge(removed, remaining)
	if removed > 0 {
		s.logger.Debug("purged stale admission records",
			zap.Int("removed", removed),
			zap.Int("remaining", remaining),
		)
	}
	return removed
}

// RunJanitor purges stale records every PurgeInterval until ctx is done.
func (s *Scheduler) RunJanitor(ctx context.Context) {
	if s.param.PurgeInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.param.PurgeInterval)
	defer ticker.Stop()

	s.logger.Info("janitor started",
		zap.Duration("interval", s.param.PurgeInterval),
		zap.Duration("stale_after", s.param.StaleAfter),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			s.PurgeStale()
		}
	}
}
