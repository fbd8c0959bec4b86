package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rohmanhakim/crawlgate/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile           string
	userAgent         string
	requestsPerSecond float64
	robotsTTL         time.Duration
	fetchTimeout      time.Duration
	precedence        string
	admissionMode     string
	listenAddr        string
	devLog            bool
)

// unsetRate marks --requests-per-second as not given; 0 is a valid value
// that disables the gate.
const unsetRate = -1

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crawlgate",
	Short: "robots.txt compliance and per-origin admission control for crawlers.",
	Long: `crawlgate answers two questions for a crawler before every request:
may this URL be fetched under the site's robots.txt, and may a request to
its origin be issued right now.

robots.txt policies are fetched once per origin and cached; concurrent
lookups for the same origin share a single fetch. Admission is granted at
most requests-per-second times per origin.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (json, yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent for robots.txt requests and default robots group")
	rootCmd.PersistentFlags().Float64Var(&requestsPerSecond, "requests-per-second", unsetRate, "admissions per second per origin (0 disables the gate)")
	rootCmd.PersistentFlags().DurationVar(&robotsTTL, "robots-ttl", 0, "how long a fetched robots.txt stays cached")
	rootCmd.PersistentFlags().DurationVar(&fetchTimeout, "fetch-timeout", 0, "timeout for one robots.txt fetch")
	rootCmd.PersistentFlags().StringVar(&precedence, "precedence", "", "rule precedence: longest-match or first-match")
	rootCmd.PersistentFlags().StringVar(&admissionMode, "admission-mode", "", "admission gate: fixed-interval or token-bucket")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen-addr", "", "address the HTTP API listens on")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev-log", false, "human readable debug logging")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// InitConfigWithError loads the config file when one is given, otherwise
// defaults and CRAWLGATE_* environment variables, then applies flags.
func InitConfigWithError() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
	} else {
		cfg, err = config.FromEnvironment()
		if err != nil {
			return cfg, err
		}
	}

	// Override with CLI flag values where provided
	configBuilder := &cfg

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if requestsPerSecond >= 0 {
		configBuilder = configBuilder.WithRequestsPerSecond(requestsPerSecond)
	}

	if robotsTTL > 0 {
		configBuilder = configBuilder.WithRobotsCacheTTL(robotsTTL)
	}

	if fetchTimeout > 0 {
		configBuilder = configBuilder.WithRobotsFetchTimeout(fetchTimeout)
	}

	if precedence != "" {
		configBuilder = configBuilder.WithRobotsPrecedence(precedence)
	}

	if admissionMode != "" {
		configBuilder = configBuilder.WithAdmissionMode(admissionMode)
	}

	if listenAddr != "" {
		configBuilder = configBuilder.WithListenAddr(listenAddr)
	}

	if devLog {
		configBuilder = configBuilder.WithDevelopmentLog(devLog)
	}

	return configBuilder.Build()
}

// ResetFlags resets all flag variables to their default values.
// This is useful for testing to ensure clean state between tests.
func ResetFlags() {
	cfgFile = ""
	userAgent = ""
	requestsPerSecond = unsetRate
	robotsTTL = 0
	fetchTimeout = 0
	precedence = ""
	admissionMode = ""
	listenAddr = ""
	devLog = false
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetRequestsPerSecondForTest(rps float64) {
	requestsPerSecond = rps
}

func SetRobotsTTLForTest(ttl time.Duration) {
	robotsTTL = ttl
}

func SetPrecedenceForTest(p string) {
	precedence = p
}

func SetAdmissionModeForTest(mode string) {
	admissionMode = mode
}

func SetListenAddrForTest(addr string) {
	listenAddr = addr
}
