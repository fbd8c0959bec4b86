package limiter

import (
	"time"

	"github.com/rohmanhakim/crawlgate/pkg/timeutil"
	"github.com/rohmanhakim/crawlgate/pkg/urlutil"
	"golang.org/x/time/rate"
)

// TokenBucketGate admits requests per origin from a token bucket refilled at
// RequestsPerSecond and holding up to Burst tokens. Unlike FixedIntervalGate,
// an idle origin accrues credit, so up to Burst requests may pass back to back.
type TokenBucketGate struct {
	param       GateParam
	minInterval time.Duration
	clock       timeutil.Clock
	buckets     *shardedMap[*bucketRecord]
}

type bucketRecord struct {
	limiter       *rate.Limiter
	createdAt     time.Time
	lastGrantedAt time.Time
}

// lastSeen is the last grant, or creation time if nothing was granted yet.
func (b *bucketRecord) lastSeen() time.Time {
	if b.lastGrantedAt.IsZero() {
		return b.createdAt
	}
	return b.lastGrantedAt
}

func NewTokenBucketGate(param GateParam, clock timeutil.Clock) *TokenBucketGate {
	if param.Burst < 1 {
		param.Burst = 1
	}
	return &TokenBucketGate{
		param:       param,
		minInterval: param.MinInterval(),
		clock:       timeutil.OrSystem(clock),
		buckets:     newShardedMap[*bucketRecord](param.Shards),
	}
}

func (g *TokenBucketGate) TryAcquire(rawURL string) AcquireResult {
	if g.param.Disabled() {
		return granted()
	}

	key := urlutil.OriginKey(rawURL)
	shard := g.buckets.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	now := g.clock.Now()
	bucket := g.bucketLocked(shard, key, now)

	reservation := bucket.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return denied(g.minInterval)
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return denied(delay)
	}

	bucket.lastGrantedAt = now
	return granted()
}

func (g *TokenBucketGate) WaitTime(rawURL string) time.Duration {
	if g.param.Disabled() {
		return 0
	}

	key := urlutil.OriginKey(rawURL)
	shard := g.buckets.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	bucket, exists := shard.records[key]
	if !exists {
		return 0
	}

	tokens := bucket.limiter.TokensAt(g.clock.Now())
	if tokens >= 1 {
		return 0
	}
	missing := 1 - tokens
	return time.Duration(missing / float64(bucket.limiter.Limit()) * float64(time.Second))
}

func (g *TokenBucketGate) PurgeStale(maxAge time.Duration) int {
	now := g.clock.Now()
	return g.buckets.deleteIf(func(b *bucketRecord) bool {
		return now.Sub(b.lastSeen()) > maxAge
	})
}

func (g *TokenBucketGate) Len() int {
	return g.buckets.len()
}

// caller must hold shard.mu
func (g *TokenBucketGate) bucketLocked(shard *mapShard[*bucketRecord], key string, now time.Time) *bucketRecord {
	bucket, exists := shard.records[key]
	if !exists {
		bucket = &bucketRecord{
			limiter:   rate.NewLimiter(rate.Every(g.minInterval), g.param.Burst),
			createdAt: now,
		}
		shard.records[key] = bucket
	}
	return bucket
}

var _ Gate = (*TokenBucketGate)(nil)
