package limiter

import "time"

// LastGrants returns each tracked origin's last grant time.
func LastGrants(g *FixedIntervalGate) map[string]time.Time {
	grants := make(map[string]time.Time)
	for _, shard := range g.records.shards {
		shard.mu.Lock()
		for origin, record := range shard.records {
			grants[origin] = record.lastGrantedAt
		}
		shard.mu.Unlock()
	}
	return grants
}
