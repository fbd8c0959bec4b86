package metadata

import (
	"time"

	"github.com/google/uuid"
	"github.com/rohmanhakim/crawlgate/internal/logging"
	"github.com/rohmanhakim/crawlgate/internal/metrics"
	"go.uber.org/zap"
)

/*
MetadataSink receives structured events from the policy cache, the
admission gate and the composer.

Metadata is write-only.
No component may read metadata to influence an admission or robots decision.
*/
type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
	)

	RecordRobotsDecision(origin string, path string, agent string, allowed bool, code string)
	RecordPolicyRefresh(origin string, result string, ttl time.Duration, digest string, fetchDuration time.Duration)
	RecordEviction(origin string)
	RecordAdmission(origin string, granted bool, retryAfter time.Duration)
	RecordPurge(removed int, remaining int)
}

/*
Recorder forwards events to a zap logger and, when present, to the
Prometheus collectors.
Ordering guarantees:
- Events from one goroutine are recorded in the order they are received.
- No global ordering across goroutines is guaranteed.
*/
type Recorder struct {
	instanceID string
	logger     *zap.Logger
	collectors *metrics.Collectors
}

// NewRecorder tags every event with a fresh instance id. collectors may be nil.
func NewRecorder(logger *zap.Logger, collectors *metrics.Collectors) *Recorder {
	instanceID := uuid.NewString()
	return &Recorder{
		instanceID: instanceID,
		logger:     logging.OrNop(logger).Named("metadata").With(zap.String("instance_id", instanceID)),
		collectors: collectors,
	}
}

func (r *Recorder) InstanceID() string {
	return r.instanceID
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	fields := []zap.Field{
		zap.Time("observed_at", observedAt),
		zap.String("package", packageName),
		zap.String("action", action),
		zap.Stringer("cause", cause),
		zap.String("error", errorString),
	}
	r.logger.Warn("error absorbed", append(fields, attrFields(attrs)...)...)

	if r.collectors != nil {
		r.collectors.ObserveError(packageName, cause.String())
	}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
	r.logger.Debug("document fetched",
		zap.String("url", fetchUrl),
		zap.Int("http_status", httpStatus),
		zap.Duration("duration", duration),
		zap.String("content_type", contentType),
		zap.Int("retry_count", retryCount),
	)
}

func (r *Recorder) RecordRobotsDecision(origin string, path string, agent string, allowed bool, code string) {
	r.logger.Debug("robots decision",
		zap.String("origin", origin),
		zap.String("path", path),
		zap.String("agent", agent),
		zap.Bool("allowed", allowed),
		zap.String("code", code),
	)

	if r.collectors != nil {
		r.collectors.ObserveRobotsDecision(code)
	}
}

func (r *Recorder) RecordPolicyRefresh(origin string, result string, ttl time.Duration, digest string, fetchDuration time.Duration) {
	r.logger.Info("robots policy refreshed",
		zap.String("origin", origin),
		zap.String("result", result),
		zap.Duration("ttl", ttl),
		zap.String("digest", digest),
		zap.Duration("fetch_duration", fetchDuration),
	)

	if r.collectors != nil {
		r.collectors.ObserveRobotsRefresh(result, fetchDuration)
	}
}

func (r *Recorder) RecordEviction(origin string) {
	r.logger.Debug("robots policy evicted", zap.String("origin", origin))

	if r.collectors != nil {
		r.collectors.ObserveEviction()
	}
}

func (r *Recorder) RecordAdmission(origin string, granted bool, retryAfter time.Duration) {
	r.logger.Debug("admission decision",
		zap.String("origin", origin),
		zap.Bool("granted", granted),
		zap.Duration("retry_after", retryAfter),
	)

	if r.collectors != nil {
		r.collectors.ObserveAdmission(granted, retryAfter)
	}
}

func (r *Recorder) RecordPurge(removed int, remaining int) {
	r.logger.Info("admission records purged",
		zap.Int("removed", removed),
		zap.Int("remaining", remaining),
	)

	if r.collectors != nil {
		r.collectors.ObservePurge(removed)
	}
}

func attrFields(attrs []Attribute) []zap.Field {
	fields := make([]zap.Field, 0, len(attrs))
	for _, attr := range attrs {
		fields = append(fields, zap.String(string(attr.Key), attr.Value))
	}
	return fields
}

// NoopSink implements MetadataSink and discards everything.
// Callers (or tests) decide whether to inject a Recorder or a NoopSink.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
}

func (n *NoopSink) RecordRobotsDecision(origin string, path string, agent string, allowed bool, code string) {
}

func (n *NoopSink) RecordPolicyRefresh(origin string, result string, ttl time.Duration, digest string, fetchDuration time.Duration) {
}

func (n *NoopSink) RecordEviction(origin string) {}

func (n *NoopSink) RecordAdmission(origin string, granted bool, retryAfter time.Duration) {}

func (n *NoopSink) RecordPurge(removed int, remaining int) {}

var (
	_ MetadataSink = (*Recorder)(nil)
	_ MetadataSink = (*NoopSink)(nil)
)
