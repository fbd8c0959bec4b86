package api

import (
	"time"

	"github.com/rohmanhakim/crawlgate/internal/robots"
	"github.com/rohmanhakim/crawlgate/internal/scheduler"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type decisionResponse struct {
	URL         string `json:"url"`
	Origin      string `json:"origin,omitempty"`
	Agent       string `json:"agent"`
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	Code        string `json:"code"`
	MatchedRule string `json:"matched_rule,omitempty"`
}

func newDecisionResponse(d robots.Decision) decisionResponse {
	return decisionResponse{
		URL:         d.URL,
		Origin:      d.Origin,
		Agent:       d.Agent,
		Allowed:     d.Allowed,
		Reason:      d.Reason,
		Code:        string(d.Code),
		MatchedRule: d.MatchedRule,
	}
}

type policyResponse struct {
	Origin    string    `json:"origin"`
	Outcome   string    `json:"outcome"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Digest    string    `json:"digest,omitempty"`
	Agents    []string  `json:"agents"`
}

func newPolicyResponse(info robots.PolicyInfo) policyResponse {
	agents := info.Agents
	if agents == nil {
		agents = []string{}
	}
	return policyResponse{
		Origin:    info.Origin,
		Outcome:   info.Outcome,
		FetchedAt: info.FetchedAt,
		ExpiresAt: info.ExpiresAt,
		Digest:    info.Digest,
		Agents:    agents,
	}
}

type admissionResponse struct {
	Granted      bool  `json:"granted"`
	RetryAfterMs int64 `json:"retry_after_ms"`
}

type waitResponse struct {
	WaitMs int64 `json:"wait_ms"`
}

type verdictResponse struct {
	URL          string           `json:"url"`
	Permitted    bool             `json:"permitted"`
	Granted      bool             `json:"granted"`
	RetryAfterMs int64            `json:"retry_after_ms"`
	Reason       string           `json:"reason"`
	Robots       decisionResponse `json:"robots"`
}

func newVerdictResponse(v scheduler.Verdict) verdictResponse {
	return verdictResponse{
		URL:          v.URL,
		Permitted:    v.Permitted,
		Granted:      v.Granted,
		RetryAfterMs: v.RetryAfter.Milliseconds(),
		Reason:       string(v.Reason),
		Robots:       newDecisionResponse(v.Robots),
	}
}
