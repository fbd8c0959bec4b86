package cmd

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rohmanhakim/crawlgate/internal/config"
	"github.com/rohmanhakim/crawlgate/internal/fetcher"
	"github.com/rohmanhakim/crawlgate/internal/logging"
	"github.com/rohmanhakim/crawlgate/internal/metadata"
	"github.com/rohmanhakim/crawlgate/internal/metrics"
	"github.com/rohmanhakim/crawlgate/internal/robots"
	"github.com/rohmanhakim/crawlgate/internal/scheduler"
	"github.com/rohmanhakim/crawlgate/pkg/limiter"
	"github.com/rohmanhakim/crawlgate/pkg/retry"
	"github.com/rohmanhakim/crawlgate/pkg/timeutil"
)

// services is one fully wired instance. Nothing in it is process-global.
type services struct {
	logger     *zap.Logger
	registry   *prometheus.Registry
	collectors *metrics.Collectors
	recorder   *metadata.Recorder
	policies   *robots.PolicyCache
	gate       limiter.Gate
	scheduler  *scheduler.Scheduler
}

func newServices(cfg config.Config, logger *zap.Logger, httpClient *http.Client, clock timeutil.Clock) *services {
	logger = logging.OrNop(logger)
	clock = timeutil.OrSystem(clock)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricCollectors := metrics.New(registry)
	recorder := metadata.NewRecorder(logger, metricCollectors)

	retryParam := retry.NewRetryParam(
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)
	// One byte over the parse limit lets the parser see that the body was cut.
	documentFetcher := fetcher.NewHTTPDocumentFetcher(
		recorder,
		httpClient,
		cfg.UserAgent(),
		int64(cfg.RobotsMaxBodyBytes())+1,
		retryParam,
	)

	policies := robots.NewPolicyCache(robots.PolicyParam{
		UserAgent:     cfg.UserAgent(),
		CacheTTL:      cfg.RobotsCacheTTL(),
		FailureTTL:    cfg.RobotsFailureTTL(),
		NotFoundTTL:   cfg.RobotsNotFoundTTL(),
		FetchTimeout:  cfg.RobotsFetchTimeout(),
		MaxBodyBytes:  cfg.RobotsMaxBodyBytes(),
		CacheCapacity: cfg.RobotsCacheCapacity(),
		CacheShards:   cfg.RobotsCacheShards(),
		Precedence:    robots.Precedence(cfg.RobotsPrecedence()),
	}, documentFetcher, recorder, clock, logger)

	gateParam := limiter.NewGateParam(cfg.RequestsPerSecond(), cfg.AdmissionBurst(), cfg.AdmissionShards())
	var gate limiter.Gate
	if cfg.AdmissionMode() == config.AdmissionModeTokenBucket {
		gate = limiter.NewTokenBucketGate(gateParam, clock)
	} else {
		gate = limiter.NewFixedIntervalGate(gateParam, clock)
	}

	sched := scheduler.NewScheduler(
		policies,
		gate,
		recorder,
		scheduler.NewSchedulerParam(cfg.AdmissionStaleAfter(), cfg.AdmissionPurgeInterval()),
		logger,
	)

	return &services{
		logger:     logger,
		registry:   registry,
		collectors: metricCollectors,
		recorder:   recorder,
		policies:   policies,
		gate:       gate,
		scheduler:  sched,
	}
}
