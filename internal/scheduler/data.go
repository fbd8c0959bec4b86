package scheduler

import (
	"time"

	"github.com/rohmanhakim/crawlgate/internal/robots"
)

type VerdictReason string

const (
	ReasonAdmitted    VerdictReason = "admitted"
	ReasonDisallowed  VerdictReason = "disallowed_by_robots"
	ReasonRateLimited VerdictReason = "rate_limited"
)

// Verdict is the combined outcome of the robots check and the admission
// gate for one URL. Granted implies Permitted.
type Verdict struct {
	URL        string
	Permitted  bool
	Granted    bool
	RetryAfter time.Duration
	Reason     VerdictReason
	Robots     robots.Decision
}

// SchedulerParam controls the janitor that purges idle admission records.
type SchedulerParam struct {
	StaleAfter    time.Duration
	PurgeInterval time.Duration
}

func NewSchedulerParam(staleAfter time.Duration, purgeInterval time.Duration) SchedulerParam {
	return SchedulerParam{
		StaleAfter:    staleAfter,
		PurgeInterval: purgeInterval,
	}
}
