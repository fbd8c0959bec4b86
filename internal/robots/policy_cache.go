package robots

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/fetcher"
	"github.com/rohmanhakim/crawlgate/internal/logging"
	"github.com/rohmanhakim/crawlgate/internal/metadata"
	"github.com/rohmanhakim/crawlgate/internal/robots/cache"
	"github.com/rohmanhakim/crawlgate/pkg/hashutil"
	"github.com/rohmanhakim/crawlgate/pkg/timeutil"
	"github.com/rohmanhakim/crawlgate/pkg/urlutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

/*
PolicyCache

Responsibilities:
- Fetch robots.txt once per origin and keep the parsed policy for a TTL
- Coalesce concurrent refreshes of the same origin into one fetch
- Evaluate URLs against the cached policy
- Fail open whenever the policy is missing or unusable

Errors are recorded through the metadata sink and never returned.
*/
type PolicyCache struct {
	param        PolicyParam
	defaultAgent string
	fetcher      fetcher.DocumentFetcher
	metadataSink metadata.MetadataSink
	clock        timeutil.Clock
	logger       *zap.Logger
	entries      cache.Cache[*policyEntry]
	flights      singleflight.Group
}

// PolicyParam holds the cache settings. They are read once at construction.
type PolicyParam struct {
	UserAgent     string
	CacheTTL      time.Duration
	FailureTTL    time.Duration
	NotFoundTTL   time.Duration
	FetchTimeout  time.Duration
	MaxBodyBytes  int
	CacheCapacity int
	CacheShards   int
	Precedence    Precedence
}

const defaultFetchTimeout = 10 * time.Second

func NewPolicyCache(
	param PolicyParam,
	documentFetcher fetcher.DocumentFetcher,
	metadataSink metadata.MetadataSink,
	clock timeutil.Clock,
	logger *zap.Logger,
) *PolicyCache {
	if param.FetchTimeout <= 0 {
		param.FetchTimeout = defaultFetchTimeout
	}
	if param.MaxBodyBytes <= 0 {
		param.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if param.Precedence == "" {
		param.Precedence = LongestMatch
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}

	c := &PolicyCache{
		param:        param,
		defaultAgent: ProductToken(param.UserAgent),
		fetcher:      documentFetcher,
		metadataSink: metadataSink,
		clock:        timeutil.OrSystem(clock),
		logger:       logging.OrNop(logger).Named("robots"),
	}
	c.entries = cache.NewMemoryCache[*policyEntry](param.CacheCapacity, param.CacheShards, c.recordEviction)
	return c
}

// CheckAllowed decides whether agentToken may fetch rawURL. An empty
// agentToken means the configured user agent. It never fails: anything that
// prevents a decision yields Allowed=true with a Code saying why.
//
// When the origin's policy must be refreshed, CheckAllowed waits for the
// shared fetch until ctx is done. Giving up does not cancel the fetch.
func (c *PolicyCache) CheckAllowed(ctx context.Context, rawURL string, agentToken string) Decision {
	callerMethod := "PolicyCache.CheckAllowed"

	agent := agentToken
	if strings.TrimSpace(agent) == "" {
		agent = c.defaultAgent
	}

	target, origin, err := parseTarget(rawURL)
	if err != nil {
		c.recordError(callerMethod, &RobotsError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}, metadata.NewAttr(metadata.AttrURL, rawURL))
		return c.record(Decision{
			URL:     rawURL,
			Agent:   agent,
			Allowed: true,
			Reason:  fmt.Sprintf("cannot evaluate url: %v", err),
			Code:    InvalidURL,
		})
	}

	decision := Decision{
		URL:    rawURL,
		Origin: origin.String(),
		Path:   urlutil.RequestPath(target),
		Agent:  agent,
	}

	entry, ok := c.freshEntry(origin.String())
	if !ok {
		entry, ok = c.refresh(ctx, origin, false)
		if !ok {
			decision.Allowed = true
			decision.Code = RefreshAbandoned
			decision.Reason = fmt.Sprintf("stopped waiting for %s: %v", origin.RobotsURL(), context.Cause(ctx))
			return c.record(decision)
		}
	}

	return c.record(c.decide(entry, decision))
}

// Refresh forces a new fetch of the origin's robots.txt unless a refresh is
// already in flight, in which case it joins that one.
func (c *PolicyCache) Refresh(ctx context.Context, rawURL string) (PolicyInfo, error) {
	_, origin, err := parseTarget(rawURL)
	if err != nil {
		return PolicyInfo{}, err
	}
	entry, ok := c.refresh(ctx, origin, true)
	if !ok {
		return PolicyInfo{}, context.Cause(ctx)
	}
	return entry.info(), nil
}

// Lookup returns what is cached for the origin of rawURL without fetching.
func (c *PolicyCache) Lookup(rawURL string) (PolicyInfo, bool) {
	_, origin, err := parseTarget(rawURL)
	if err != nil {
		return PolicyInfo{}, false
	}
	entry, ok := c.entries.Get(origin.String())
	if !ok {
		return PolicyInfo{}, false
	}
	return entry.info(), true
}

// Invalidate drops the cached policy for the origin of rawURL.
func (c *PolicyCache) Invalidate(rawURL string) bool {
	_, origin, err := parseTarget(rawURL)
	if err != nil {
		return false
	}
	_, existed := c.entries.Get(origin.String())
	c.entries.Remove(origin.String())
	return existed
}

// Len returns the number of cached origins.
func (c *PolicyCache) Len() int {
	return c.entries.Len()
}

func (c *PolicyCache) freshEntry(key string) (*policyEntry, bool) {
	entry, ok := c.entries.Get(key)
	if !ok || !entry.isFresh(c.clock.Now()) {
		return nil, false
	}
	return entry, true
}

// refresh joins or starts the single in-flight fetch for origin and waits
// for it until ctx is done. A forced refresh skips the freshness re-check.
func (c *PolicyCache) refresh(ctx context.Context, origin urlutil.Origin, force bool) (*policyEntry, bool) {
	key := origin.String()

	ch := c.flights.DoChan(key, func() (interface{}, error) {
		// A flight that finished just before this one started may already
		// have installed a fresh entry.
		if entry, ok := c.freshEntry(key); ok && !force {
			return entry, nil
		}
		previous, _ := c.entries.Get(key)
		return c.fetchAndInstall(origin, previous), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("joined in-flight refresh", zap.String("origin", key))
		}
		return res.Val.(*policyEntry), true
	case <-ctx.Done():
		c.logger.Debug("abandoned refresh wait", zap.String("origin", key), zap.Error(ctx.Err()))
		return nil, false
	}
}

// fetchAndInstall runs detached from any caller context so that every waiter,
// including ones that gave up, benefits from the result.
func (c *PolicyCache) fetchAndInstall(origin urlutil.Origin, previous *policyEntry) *policyEntry {
	callerMethod := "PolicyCache.refresh"
	robotsURL := origin.RobotsURL()

	fetchCtx, cancel := context.WithTimeout(context.Background(), c.param.FetchTimeout)
	defer cancel()

	started := time.Now()
	result, fetchErr := c.fetcher.FetchDocument(fetchCtx, robotsURL)
	fetchDuration := time.Since(started)
	now := c.clock.Now()

	var entry *policyEntry
	var refreshResult RefreshResult

	switch {
	case fetchErr != nil:
		c.recordError(callerMethod, &RobotsError{
			Message:   fetchErr.Error(),
			Retryable: true,
			Cause:     ErrCauseFetchTransportFailure,
		}, metadata.NewAttr(metadata.AttrOrigin, origin.String()))
		entry = allowAllEntry(origin, now, c.param.FailureTTL, outcomeFetchFailed)
		refreshResult = RefreshFailed

	case result.IsSuccess():
		body := result.Body()
		ruleSet, report := ParseRobotsTxtLimit(string(body), c.param.MaxBodyBytes)
		if report.HasAmbiguities() || result.Truncated() {
			c.recordError(callerMethod, &RobotsError{
				Message: fmt.Sprintf("skipped %d malformed and %d orphaned lines (truncated=%t)",
					report.Skipped, report.Orphaned, report.Truncated || result.Truncated()),
				Retryable: false,
				Cause:     ErrCauseParseAmbiguity,
			}, ambiguityAttrs(origin, report)...)
		}
		entry = &policyEntry{
			origin:    origin,
			ruleSet:   ruleSet,
			fetchedAt: now,
			ttl:       c.param.CacheTTL,
			outcome:   outcomeParsed,
			digest:    hashutil.FingerprintOf(body),
		}
		refreshResult = compareWithPrevious(previous, entry)

	case result.Code() == 404:
		entry = allowAllEntry(origin, now, c.param.NotFoundTTL, outcomeNotFound)
		refreshResult = RefreshNotFound

	default:
		c.recordError(callerMethod, &RobotsError{
			Message:   fmt.Sprintf("%s answered %d", robotsURL, result.Code()),
			Retryable: true,
			Cause:     ErrCauseFetchStatusFailure,
		},
			metadata.NewAttr(metadata.AttrOrigin, origin.String()),
			metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprintf("%d", result.Code())),
		)
		entry = allowAllEntry(origin, now, c.param.FailureTTL, outcomeFetchFailed)
		refreshResult = RefreshFailed
	}

	c.entries.Put(origin.String(), entry)
	c.metadataSink.RecordPolicyRefresh(origin.String(), string(refreshResult), entry.ttl, entry.digest.String(), fetchDuration)
	return entry
}

func (c *PolicyCache) decide(entry *policyEntry, decision Decision) Decision {
	decision.Allowed = true

	switch entry.outcome {
	case outcomeNotFound:
		decision.Code = RobotsNotFound
		return decision
	case outcomeFetchFailed:
		decision.Code = FetchFailed
		decision.Reason = fmt.Sprintf("%s unavailable; allowing until %s",
			entry.origin.RobotsURL(), entry.expiresAt().Format(time.RFC3339))
		return decision
	}

	if entry.ruleSet.IsEmpty() {
		decision.Code = EmptyRuleSet
		return decision
	}

	verdict := entry.ruleSet.EvaluateWith(c.param.Precedence, decision.Agent, decision.Path)
	switch {
	case verdict.Group == "":
		decision.Code = UserAgentNotMatched
	case !verdict.Matched:
		decision.Code = NoMatchingRules
	case verdict.Allowed:
		decision.Code = AllowedByRobots
		decision.MatchedRule = verdict.Rule.String()
	default:
		decision.Allowed = false
		decision.Code = DisallowedByRobots
		decision.MatchedRule = verdict.Rule.String()
		decision.Reason = fmt.Sprintf("%q disallowed for user-agent %q by %q",
			decision.Path, verdict.Group, verdict.Rule.String())
	}
	return decision
}

func (c *PolicyCache) record(decision Decision) Decision {
	c.metadataSink.RecordRobotsDecision(decision.Origin, decision.Path, decision.Agent, decision.Allowed, string(decision.Code))
	return decision
}

func (c *PolicyCache) recordEviction(key string, entry *policyEntry) {
	c.metadataSink.RecordEviction(key)
	c.recordError("PolicyCache.install", &RobotsError{
		Message:   fmt.Sprintf("evicted policy fetched at %s", entry.fetchedAt.Format(time.RFC3339)),
		Retryable: false,
		Cause:     ErrCauseCacheCapacityExceeded,
	}, metadata.NewAttr(metadata.AttrOrigin, key))
}

func (c *PolicyCache) recordError(callerMethod string, err *RobotsError, attrs ...metadata.Attribute) {
	c.metadataSink.RecordError(
		c.clock.Now(),
		"robots",
		callerMethod,
		mapRobotsErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}

func parseTarget(rawURL string) (*url.URL, urlutil.Origin, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, urlutil.Origin{}, fmt.Errorf("%w: %v", urlutil.ErrInvalidURL, err)
	}
	origin, err := urlutil.OriginOf(target)
	if err != nil {
		return nil, urlutil.Origin{}, err
	}
	return target, origin, nil
}

func allowAllEntry(origin urlutil.Origin, now time.Time, ttl time.Duration, outcome entryOutcome) *policyEntry {
	return &policyEntry{
		origin:    origin,
		ruleSet:   AllowAll(),
		fetchedAt: now,
		ttl:       ttl,
		outcome:   outcome,
	}
}

func compareWithPrevious(previous, current *policyEntry) RefreshResult {
	if previous == nil || previous.digest.IsZero() {
		return RefreshCreated
	}
	if previous.digest == current.digest {
		return RefreshUnchanged
	}
	return RefreshChanged
}

func ambiguityAttrs(origin urlutil.Origin, report ParseReport) []metadata.Attribute {
	attrs := []metadata.Attribute{metadata.NewAttr(metadata.AttrOrigin, origin.String())}
	for _, line := range report.AmbiguousLines {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrLine, fmt.Sprintf("%d", line)))
	}
	return attrs
}

func (e *policyEntry) info() PolicyInfo {
	return PolicyInfo{
		Origin:    e.origin.String(),
		Outcome:   string(e.outcome),
		FetchedAt: e.fetchedAt,
		ExpiresAt: e.expiresAt(),
		Digest:    e.digest.String(),
		Agents:    e.ruleSet.Agents(),
	}
}
