package limiter

import (
	"time"

	"github.com/rohmanhakim/crawlgate/pkg/timeutil"
	"github.com/rohmanhakim/crawlgate/pkg/urlutil"
)

// FixedIntervalGate
// Enforces a minimum interval between granted requests to the same origin.
// Responsibilities:
// - Bookkeep each origin's last granted timestamp
// - Grant when the interval has elapsed, otherwise report how long to wait
// - Forget origins that have been idle longer than a caller-chosen age
type FixedIntervalGate struct {
	param       GateParam
	minInterval time.Duration
	clock       timeutil.Clock
	records     *shardedMap[admissionRecord]
}

func NewFixedIntervalGate(param GateParam, clock timeutil.Clock) *FixedIntervalGate {
	return &FixedIntervalGate{
		param:       param,
		minInterval: param.MinInterval(),
		clock:       timeutil.OrSystem(clock),
		records:     newShardedMap[admissionRecord](param.Shards),
	}
}

// TryAcquire grants the request and stamps the origin, or denies it with the
// remaining wait. A denied request leaves the record untouched.
// URLs without a recognizable origin are keyed on their raw text.
func (g *FixedIntervalGate) TryAcquire(rawURL string) AcquireResult {
	if g.param.Disabled() {
		return granted()
	}

	key := urlutil.OriginKey(rawURL)
	shard := g.records.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := g.clock.Now()
	record, exists := shard.records[key]
	if exists {
		if wait := g.remaining(record, now); wait > 0 {
			return denied(wait)
		}
	}

	shard.records[key] = admissionRecord{lastGrantedAt: now}
	return granted()
}

// WaitTime reports how long TryAcquire would currently ask the caller to
// wait, without granting anything.
func (g *FixedIntervalGate) WaitTime(rawURL string) time.Duration {
	if g.param.Disabled() {
		return 0
	}

	key := urlutil.OriginKey(rawURL)
	shard := g.records.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	record, exists := shard.records[key]
	if !exists {
		return 0
	}
	return g.remaining(record, g.clock.Now())
}

// PurgeStale removes records whose last grant is more than maxAge ago and
// returns how many were removed.
func (g *FixedIntervalGate) PurgeStale(maxAge time.Duration) int {
	now := g.clock.Now()
	return g.records.deleteIf(func(r admissionRecord) bool {
		return now.Sub(r.lastGrantedAt) > maxAge
	})
}

func (g *FixedIntervalGate) Len() int {
	return g.records.len()
}

func (g *FixedIntervalGate) MinInterval() time.Duration {
	return g.minInterval
}

// remaining is zero once minInterval has elapsed. A clock that moved
// backwards counts as no time elapsed.
func (g *FixedIntervalGate) remaining(record admissionRecord, now time.Time) time.Duration {
	elapsed := now.Sub(record.lastGrantedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= g.minInterval {
		return 0
	}
	return g.minInterval - elapsed
}

var _ Gate = (*FixedIntervalGate)(nil)
