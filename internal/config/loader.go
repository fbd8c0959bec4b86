package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides: robots.cache_ttl is read from
// CRAWLGATE_ROBOTS_CACHE_TTL.
const EnvPrefix = "CRAWLGATE"

type configDTO struct {
	UserAgent string       `mapstructure:"user_agent"`
	Robots    robotsDTO    `mapstructure:"robots"`
	Admission admissionDTO `mapstructure:"admission"`
	Fetch     fetchDTO     `mapstructure:"fetch"`
	Server    serverDTO    `mapstructure:"server"`
	Log       logDTO       `mapstructure:"log"`
}

type robotsDTO struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	FailureTTL    time.Duration `mapstructure:"failure_ttl"`
	NotFoundTTL   time.Duration `mapstructure:"not_found_ttl"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
	CacheCapacity int           `mapstructure:"cache_capacity"`
	CacheShards   int           `mapstructure:"cache_shards"`
	Precedence    string        `mapstructure:"precedence"`
}

type admissionDTO struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Mode              string        `mapstructure:"mode"`
	Burst             int           `mapstructure:"burst"`
	Shards            int           `mapstructure:"shards"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`
	PurgeInterval     time.Duration `mapstructure:"purge_interval"`
}

type fetchDTO struct {
	MaxAttempt        int           `mapstructure:"max_attempt"`
	BackoffInitial    time.Duration `mapstructure:"backoff_initial"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	Jitter            time.Duration `mapstructure:"jitter"`
	RandomSeed        int64         `mapstructure:"random_seed"`
}

type serverDTO struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type logDTO struct {
	Development bool `mapstructure:"development"`
}

// newViper returns an isolated viper instance seeded with the defaults of
// WithDefault and bound to CRAWLGATE_* environment variables.
func newViper() *viper.Viper {
	d := WithDefault()
	v := viper.New()

	v.SetDefault("user_agent", d.userAgent)
	v.SetDefault("robots.cache_ttl", d.robotsCacheTTL)
	v.SetDefault("robots.failure_ttl", d.robotsFailureTTL)
	v.SetDefault("robots.not_found_ttl", d.robotsNotFoundTTL)
	v.SetDefault("robots.fetch_timeout", d.robotsFetchTimeout)
	v.SetDefault("robots.max_body_bytes", d.robotsMaxBodyBytes)
	v.SetDefault("robots.cache_capacity", d.robotsCacheCapacity)
	v.SetDefault("robots.cache_shards", d.robotsCacheShards)
	v.SetDefault("robots.precedence", d.robotsPrecedence)
	v.SetDefault("admission.requests_per_second", d.requestsPerSecond)
	v.SetDefault("admission.mode", d.admissionMode)
	v.SetDefault("admission.burst", d.admissionBurst)
	v.SetDefault("admission.shards", d.admissionShards)
	v.SetDefault("admission.stale_after", d.admissionStaleAfter)
	v.SetDefault("admission.purge_interval", d.admissionPurgeInterval)
	v.SetDefault("fetch.max_attempt", d.maxAttempt)
	v.SetDefault("fetch.backoff_initial", d.backoffInitialDuration)
	v.SetDefault("fetch.backoff_multiplier", d.backoffMultiplier)
	v.SetDefault("fetch.backoff_max", d.backoffMaxDuration)
	v.SetDefault("fetch.jitter", d.jitter)
	v.SetDefault("fetch.random_seed", d.randomSeed)
	v.SetDefault("server.listen_addr", d.listenAddr)
	v.SetDefault("log.development", d.developmentLog)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FromEnvironment builds a Config from defaults and CRAWLGATE_* variables.
func FromEnvironment() (Config, error) {
	return load(newViper())
}

// WithConfigFile builds a Config from a JSON, YAML or TOML file. Environment
// variables still override values from the file.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var parseErr viper.ConfigParseError
		if errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	dto := configDTO{}
	if err := v.Unmarshal(&dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	return newConfigFromDTO(dto)
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	return WithDefault().
		WithUserAgent(dto.UserAgent).
		WithRobotsCacheTTL(dto.Robots.CacheTTL).
		WithRobotsFailureTTL(dto.Robots.FailureTTL).
		WithRobotsNotFoundTTL(dto.Robots.NotFoundTTL).
		WithRobotsFetchTimeout(dto.Robots.FetchTimeout).
		WithRobotsMaxBodyBytes(dto.Robots.MaxBodyBytes).
		WithRobotsCacheCapacity(dto.Robots.CacheCapacity).
		WithRobotsCacheShards(dto.Robots.CacheShards).
		WithRobotsPrecedence(dto.Robots.Precedence).
		WithRequestsPerSecond(dto.Admission.RequestsPerSecond).
		WithAdmissionMode(dto.Admission.Mode).
		WithAdmissionBurst(dto.Admission.Burst).
		WithAdmissionShards(dto.Admission.Shards).
		WithAdmissionStaleAfter(dto.Admission.StaleAfter).
		WithAdmissionPurgeInterval(dto.Admission.PurgeInterval).
		WithMaxAttempt(dto.Fetch.MaxAttempt).
		WithBackoffInitialDuration(dto.Fetch.BackoffInitial).
		WithBackoffMultiplier(dto.Fetch.BackoffMultiplier).
		WithBackoffMaxDuration(dto.Fetch.BackoffMax).
		WithJitter(dto.Fetch.Jitter).
		WithRandomSeed(dto.Fetch.RandomSeed).
		WithListenAddr(dto.Server.ListenAddr).
		WithDevelopmentLog(dto.Log.Development).
		Build()
}
