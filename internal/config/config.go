package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Config struct {
	// User agent sent with robots.txt requests. Its product token selects
	// the robots.txt group when a caller gives no agent.
	userAgent string

	//===============
	// Robots policy
	//===============
	// How long a parsed robots.txt stays fresh
	robotsCacheTTL time.Duration
	// How long an allow-all entry stays after a failed fetch
	robotsFailureTTL time.Duration
	// How long an allow-all entry stays after a 404
	robotsNotFoundTTL time.Duration
	// Upper bound for one robots.txt fetch, independent of any caller
	robotsFetchTimeout time.Duration
	// Bytes of robots.txt that are read and parsed
	robotsMaxBodyBytes int
	// Maximum number of cached origins; least recently used are evicted
	robotsCacheCapacity int
	robotsCacheShards   int
	// "longest-match" or "first-match"
	robotsPrecedence string

	//===============
	// Admission
	//===============
	// Requests per second per origin; <= 0 disables the gate
	requestsPerSecond float64
	// "fixed-interval" or "token-bucket"
	admissionMode   string
	admissionBurst  int
	admissionShards int
	// Records not granted for this long are purged
	admissionStaleAfter time.Duration
	// How often the janitor purges stale records
	admissionPurgeInterval time.Duration

	//===============
	// Fetch retry
	//===============
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Randomized variation added on top of the backoff delay
	jitter time.Duration
	// Controls the random number generator; 0 means seeded from the clock
	randomSeed int64

	//===============
	// Serving
	//===============
	listenAddr     string
	developmentLog bool
}

const (
	PrecedenceLongestMatch = "longest-match"
	PrecedenceFirstMatch   = "first-match"

	AdmissionModeFixedInterval = "fixed-interval"
	AdmissionModeTokenBucket   = "token-bucket"
)

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		userAgent:              "crawlgate/1.0",
		robotsCacheTTL:         time.Hour,
		robotsFailureTTL:       5 * time.Minute,
		robotsNotFoundTTL:      24 * time.Hour,
		robotsFetchTimeout:     10 * time.Second,
		robotsMaxBodyBytes:     500 * 1024,
		robotsCacheCapacity:    10000,
		robotsCacheShards:      32,
		robotsPrecedence:       PrecedenceLongestMatch,
		requestsPerSecond:      1.0,
		admissionMode:          AdmissionModeFixedInterval,
		admissionBurst:         1,
		admissionShards:        32,
		admissionStaleAfter:    time.Hour,
		admissionPurgeInterval: 5 * time.Minute,
		maxAttempt:             2,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     2 * time.Second,
		jitter:                 100 * time.Millisecond,
		randomSeed:             0,
		listenAddr:             ":8080",
		developmentLog:         false,
	}
	return &defaultConfig
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithRobotsCacheTTL(ttl time.Duration) *Config {
	c.robotsCacheTTL = ttl
	return c
}

func (c *Config) WithRobotsFailureTTL(ttl time.Duration) *Config {
	c.robotsFailureTTL = ttl
	return c
}

func (c *Config) WithRobotsNotFoundTTL(ttl time.Duration) *Config {
	c.robotsNotFoundTTL = ttl
	return c
}

func (c *Config) WithRobotsFetchTimeout(timeout time.Duration) *Config {
	c.robotsFetchTimeout = timeout
	return c
}

func (c *Config) WithRobotsMaxBodyBytes(n int) *Config {
	c.robotsMaxBodyBytes = n
	return c
}

func (c *Config) WithRobotsCacheCapacity(capacity int) *Config {
	c.robotsCacheCapacity = capacity
	return c
}

func (c *Config) WithRobotsCacheShards(shards int) *Config {
	c.robotsCacheShards = shards
	return c
}

func (c *Config) WithRobotsPrecedence(precedence string) *Config {
	c.robotsPrecedence = precedence
	return c
}

func (c *Config) WithRequestsPerSecond(rps float64) *Config {
	c.requestsPerSecond = rps
	return c
}

func (c *Config) WithAdmissionMode(mode string) *Config {
	c.admissionMode = mode
	return c
}

func (c *Config) WithAdmissionBurst(burst int) *Config {
	c.admissionBurst = burst
	return c
}

func (c *Config) WithAdmissionShards(shards int) *Config {
	c.admissionShards = shards
	return c
}

func (c *Config) WithAdmissionStaleAfter(d time.Duration) *Config {
	c.admissionStaleAfter = d
	return c
}

func (c *Config) WithAdmissionPurgeInterval(d time.Duration) *Config {
	c.admissionPurgeInterval = d
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithListenAddr(addr string) *Config {
	c.listenAddr = addr
	return c
}

func (c *Config) WithDevelopmentLog(development bool) *Config {
	c.developmentLog = development
	return c
}

func (c *Config) Build() (Config, error) {
	if strings.TrimSpace(c.userAgent) == "" {
		return Config{}, fmt.Errorf("%w: user_agent cannot be empty", ErrInvalidConfig)
	}

	for name, ttl := range map[string]time.Duration{
		"robots.cache_ttl":     c.robotsCacheTTL,
		"robots.failure_ttl":   c.robotsFailureTTL,
		"robots.not_found_ttl": c.robotsNotFoundTTL,
	} {
		if ttl < 0 {
			return Config{}, fmt.Errorf("%w: %s cannot be negative, got %s", ErrInvalidConfig, name, ttl)
		}
	}
	if c.robotsFetchTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: robots.fetch_timeout must be positive, got %s", ErrInvalidConfig, c.robotsFetchTimeout)
	}
	if c.robotsMaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: robots.max_body_bytes must be positive, got %d", ErrInvalidConfig, c.robotsMaxBodyBytes)
	}
	if c.robotsCacheCapacity < 0 {
		return Config{}, fmt.Errorf("%w: robots.cache_capacity cannot be negative, got %d", ErrInvalidConfig, c.robotsCacheCapacity)
	}
	if c.robotsCacheShards < 1 || c.admissionShards < 1 {
		return Config{}, fmt.Errorf("%w: shard counts must be at least 1", ErrInvalidConfig)
	}

	c.robotsPrecedence = strings.ToLower(strings.TrimSpace(c.robotsPrecedence))
	if c.robotsPrecedence != PrecedenceLongestMatch && c.robotsPrecedence != PrecedenceFirstMatch {
		return Config{}, fmt.Errorf("%w: unknown robots.precedence %q", ErrInvalidConfig, c.robotsPrecedence)
	}

	if math.IsNaN(c.requestsPerSecond) || math.IsInf(c.requestsPerSecond, 0) {
		return Config{}, fmt.Errorf("%w: admission.requests_per_second must be finite, got %v", ErrInvalidConfig, c.requestsPerSecond)
	}

	c.admissionMode = strings.ToLower(strings.TrimSpace(c.admissionMode))
	if c.admissionMode != AdmissionModeFixedInterval && c.admissionMode != AdmissionModeTokenBucket {
		return Config{}, fmt.Errorf("%w: unknown admission.mode %q", ErrInvalidConfig, c.admissionMode)
	}
	if c.admissionMode == AdmissionModeTokenBucket && c.admissionBurst < 1 {
		return Config{}, fmt.Errorf("%w: admission.burst must be at least 1 in token-bucket mode", ErrInvalidConfig)
	}
	if c.admissionPurgeInterval <= 0 {
		return Config{}, fmt.Errorf("%w: admission.purge_interval must be positive", ErrInvalidConfig)
	}

	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: fetch.max_attempt must be at least 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}

	if c.randomSeed == 0 {
		c.randomSeed = time.Now().UnixNano()
	}

	return *c, nil
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) RobotsCacheTTL() time.Duration {
	return c.robotsCacheTTL
}

func (c Config) RobotsFailureTTL() time.Duration {
	return c.robotsFailureTTL
}

func (c Config) RobotsNotFoundTTL() time.Duration {
	return c.robotsNotFoundTTL
}

func (c Config) RobotsFetchTimeout() time.Duration {
	return c.robotsFetchTimeout
}

func (c Config) RobotsMaxBodyBytes() int {
	return c.robotsMaxBodyBytes
}

func (c Config) RobotsCacheCapacity() int {
	return c.robotsCacheCapacity
}

func (c Config) RobotsCacheShards() int {
	return c.robotsCacheShards
}

func (c Config) RobotsPrecedence() string {
	return c.robotsPrecedence
}

func (c Config) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

func (c Config) AdmissionMode() string {
	return c.admissionMode
}

func (c Config) AdmissionBurst() int {
	return c.admissionBurst
}

func (c Config) AdmissionShards() int {
	return c.admissionShards
}

func (c Config) AdmissionStaleAfter() time.Duration {
	return c.admissionStaleAfter
}

func (c Config) AdmissionPurgeInterval() time.Duration {
	return c.admissionPurgeInterval
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) ListenAddr() string {
	return c.listenAddr
}

func (c Config) DevelopmentLog() bool {
	return c.developmentLog
}
