// Package metadatatest provides a MetadataSink that keeps every event in
// memory for assertions.
package metadatatest

import (
	"sync"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/metadata"
)

type FetchEvent struct {
	FetchURL    string
	HTTPStatus  int
	Duration    time.Duration
	ContentType string
	RetryCount  int
}

type ErrorEvent struct {
	ObservedAt  time.Time
	PackageName string
	Action      string
	Cause       metadata.ErrorCause
	Details     string
	Attrs       []metadata.Attribute
}

type DecisionEvent struct {
	Origin  string
	Path    string
	Agent   string
	Allowed bool
	Code    string
}

type RefreshEvent struct {
	Origin        string
	Result        string
	TTL           time.Duration
	Digest        string
	FetchDuration time.Duration
}

type AdmissionEvent struct {
	Origin     string
	Granted    bool
	RetryAfter time.Duration
}

type PurgeEvent struct {
	Removed   int
	Remaining int
}

// RecordingSink is safe for concurrent use. Accessors return copies.
type RecordingSink struct {
	mu         sync.Mutex
	fetches    []FetchEvent
	errors     []ErrorEvent
	decisions  []DecisionEvent
	refreshes  []RefreshEvent
	evictions  []string
	admissions []AdmissionEvent
	purges     []PurgeEvent
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorEvent{
		ObservedAt:  observedAt,
		PackageName: packageName,
		Action:      action,
		Cause:       cause,
		Details:     details,
		Attrs:       attrs,
	})
}

func (s *RecordingSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, FetchEvent{
		FetchURL:    fetchUrl,
		HTTPStatus:  httpStatus,
		Duration:    duration,
		ContentType: contentType,
		RetryCount:  retryCount,
	})
}

func (s *RecordingSink) RecordRobotsDecision(origin string, path string, agent string, allowed bool, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, DecisionEvent{Origin: origin, Path: path, Agent: agent, Allowed: allowed, Code: code})
}

func (s *RecordingSink) RecordPolicyRefresh(origin string, result string, ttl time.Duration, digest string, fetchDuration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes = append(s.refreshes, RefreshEvent{Origin: origin, Result: result, TTL: ttl, Digest: digest, FetchDuration: fetchDuration})
}

func (s *RecordingSink) RecordEviction(origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictions = append(s.evictions, origin)
}

func (s *RecordingSink) RecordAdmission(origin string, granted bool, retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admissions = append(s.admissions, AdmissionEvent{Origin: origin, Granted: granted, RetryAfter: retryAfter})
}

func (s *RecordingSink) RecordPurge(removed int, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purges = append(s.purges, PurgeEvent{Removed: removed, Remaining: remaining})
}

func (s *RecordingSink) Fetches() []FetchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FetchEvent(nil), s.fetches...)
}

func (s *RecordingSink) Errors() []ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ErrorEvent(nil), s.errors...)
}

func (s *RecordingSink) Decisions() []DecisionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DecisionEvent(nil), s.decisions...)
}

func (s *RecordingSink) Refreshes() []RefreshEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RefreshEvent(nil), s.refreshes...)
}

func (s *RecordingSink) Evictions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.evictions...)
}

func (s *RecordingSink) Admissions() []AdmissionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AdmissionEvent(nil), s.admissions...)
}

func (s *RecordingSink) Purges() []PurgeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PurgeEvent(nil), s.purges...)
}

// ErrorsWithCause filters recorded errors by cause.
func (s *RecordingSink) ErrorsWithCause(cause metadata.ErrorCause) []ErrorEvent {
	var matched []ErrorEvent
	for _, e := range s.Errors() {
		if e.Cause == cause {
			matched = append(matched, e)
		}
	}
	return matched
}

var _ metadata.MetadataSink = (*RecordingSink)(nil)
