package limiter

import "time"

// Gate decides whether a request to an origin may proceed now.
// Implementations are safe for concurrent use and never fail.
type Gate interface {
	TryAcquire(rawURL string) AcquireResult
	WaitTime(rawURL string) time.Duration
	PurgeStale(maxAge time.Duration) int
	Len() int
}

// AcquireResult is the outcome of one admission attempt.
// RetryAfter is zero when Granted, positive otherwise.
type AcquireResult struct {
	Granted    bool
	RetryAfter time.Duration
}

func granted() AcquireResult {
	return AcquireResult{Granted: true}
}

func denied(retryAfter time.Duration) AcquireResult {
	return AcquireResult{RetryAfter: retryAfter}
}

// GateParam holds the admission settings shared by every Gate implementation.
type GateParam struct {
	RequestsPerSecond float64
	Burst             int
	Shards            int
}

func NewGateParam(requestsPerSecond float64, burst int, shards int) GateParam {
	return GateParam{
		RequestsPerSecond: requestsPerSecond,
		Burst:             burst,
		Shards:            shards,
	}
}

// MinInterval is 1s / RequestsPerSecond, or zero when the gate is disabled.
func (p GateParam) MinInterval() time.Duration {
	if p.Disabled() {
		return 0
	}
	return time.Duration(float64(time.Second) / p.RequestsPerSecond)
}

// Disabled reports whether every request should be granted unconditionally.
func (p GateParam) Disabled() bool {
	return p.RequestsPerSecond <= 0
}

// per-origin state owned by FixedIntervalGate
type admissionRecord struct {
	lastGrantedAt time.Time
}
