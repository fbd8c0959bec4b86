package robots

import (
	"time"

	"github.com/rohmanhakim/crawlgate/pkg/hashutil"
	"github.com/rohmanhakim/crawlgate/pkg/urlutil"
)

// Permission modeling

type Directive int

const (
	Disallow Directive = iota
	Allow
)

func (d Directive) String() string {
	if d == Allow {
		return "Allow"
	}
	return "Disallow"
}

// Rule is one Allow or Disallow line. Pattern is already normalized:
// it starts with "/" or "*" and may end with "$".
type Rule struct {
	Directive Directive
	Pattern   string
}

func (r Rule) String() string {
	return r.Directive.String() + ": " + r.Pattern
}

// Precedence selects how competing matches are resolved.
type Precedence string

const (
	// LongestMatch picks the matching rule with the longest pattern;
	// Allow wins ties.
	LongestMatch Precedence = "longest-match"
	// FirstMatch picks the first matching rule in document order.
	FirstMatch Precedence = "first-match"
)

type DecisionReason string

const (
	AllowedByRobots     DecisionReason = "allowed_by_robots"
	DisallowedByRobots  DecisionReason = "disallowed_by_robots"
	NoMatchingRules     DecisionReason = "no_matching_rules"
	UserAgentNotMatched DecisionReason = "user_agent_not_matched"
	EmptyRuleSet        DecisionReason = "empty_rule_set"
	RobotsNotFound      DecisionReason = "robots_not_found"
	FetchFailed         DecisionReason = "fetch_failed"
	InvalidURL          DecisionReason = "invalid_url"
	RefreshAbandoned    DecisionReason = "refresh_abandoned"
)

// Decision is the value handed to callers of CheckAllowed.
// Reason is set for disallows and for fail-open outcomes worth logging.
type Decision struct {
	URL         string
	Origin      string
	Path        string
	Agent       string
	Allowed     bool
	Reason      string
	Code        DecisionReason
	MatchedRule string
}

type entryOutcome string

const (
	outcomeParsed      entryOutcome = "parsed"
	outcomeNotFound    entryOutcome = "not_found"
	outcomeFetchFailed entryOutcome = "fetch_failed"
)

// policyEntry is immutable once installed; a refresh installs a new one.
type policyEntry struct {
	origin    urlutil.Origin
	ruleSet   RuleSet
	fetchedAt time.Time
	ttl       time.Duration
	outcome   entryOutcome
	digest    hashutil.Fingerprint
}

func (e *policyEntry) isFresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) <= e.ttl
}

func (e *policyEntry) expiresAt() time.Time {
	return e.fetchedAt.Add(e.ttl)
}

// RefreshResult labels what a refresh installed.
type RefreshResult string

const (
	RefreshCreated   RefreshResult = "created"
	RefreshChanged   RefreshResult = "changed"
	RefreshUnchanged RefreshResult = "unchanged"
	RefreshNotFound  RefreshResult = "not_found"
	RefreshFailed    RefreshResult = "failed"
)

// PolicyInfo describes the entry currently cached for an origin.
type PolicyInfo struct {
	Origin    string
	Outcome   string
	FetchedAt time.Time
	ExpiresAt time.Time
	Digest    string
	Agents    []string
}
