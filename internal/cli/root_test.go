package cmd_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	cmd "github.com/rohmanhakim/crawlgate/internal/cli"
	"github.com/rohmanhakim/crawlgate/internal/config"
)

// TestInitConfigNoFlags tests that InitConfigWithError returns the defaults when no flag is set
func TestInitConfigNoFlags(t *testing.T) {
	cmd.ResetFlags()

	cfg, err := cmd.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	defaultCfg, err := config.WithDefault().Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if cfg.UserAgent() != defaultCfg.UserAgent() {
		t.Errorf("Expected UserAgent %q, got %q", defaultCfg.UserAgent(), cfg.UserAgent())
	}
	if cfg.RequestsPerSecond() != defaultCfg.RequestsPerSecond() {
		t.Errorf("Expected RequestsPerSecond %v, got %v", defaultCfg.RequestsPerSecond(), cfg.RequestsPerSecond())
	}
	if cfg.RobotsCacheTTL() != defaultCfg.RobotsCacheTTL() {
		t.Errorf("Expected RobotsCacheTTL %v, got %v", defaultCfg.RobotsCacheTTL(), cfg.RobotsCacheTTL())
	}
	if cfg.AdmissionMode() != defaultCfg.AdmissionMode() {
		t.Errorf("Expected AdmissionMode %q, got %q", defaultCfg.AdmissionMode(), cfg.AdmissionMode())
	}
	if cfg.ListenAddr() != defaultCfg.ListenAddr() {
		t.Errorf("Expected ListenAddr %q, got %q", defaultCfg.ListenAddr(), cfg.ListenAddr())
	}
}

// TestInitConfigWithRequestsPerSecond tests that the rate flag is applied, including 0
func TestInitConfigWithRequestsPerSecond(t *testing.T) {
	tests := []struct {
		name string
		rps  float64
		want float64
	}{
		{"Unset keeps default", -1, 1.0},
		{"Zero disables the gate", 0, 0},
		{"Fractional rate", 0.25, 0.25},
		{"Fast rate", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd.ResetFlags()
			cmd.SetRequestsPerSecondForTest(tt.rps)

			cfg, err := cmd.InitConfigWithError()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cfg.RequestsPerSecond() != tt.want {
				t.Errorf("Expected RequestsPerSecond %v, got %v", tt.want, cfg.RequestsPerSecond())
			}
		})
	}
}

// TestInitConfigWithFlags tests that string and duration flags override defaults
func TestInitConfigWithFlags(t *testing.T) {
	cmd.ResetFlags()
	cmd.SetUserAgentForTest("flagbot/9.9")
	cmd.SetRobotsTTLForTest(90 * time.Second)
	cmd.SetPrecedenceForTest("first-match")
	cmd.SetAdmissionModeForTest("token-bucket")
	cmd.SetListenAddrForTest("127.0.0.1:7070")
	defer cmd.ResetFlags()

	cfg, err := cmd.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.UserAgent() != "flagbot/9.9" {
		t.Errorf("Expected UserAgent 'flagbot/9.9', got %q", cfg.UserAgent())
	}
	if cfg.RobotsCacheTTL() != 90*time.Second {
		t.Errorf("Expected RobotsCacheTTL 90s, got %v", cfg.RobotsCacheTTL())
	}
	if cfg.RobotsPrecedence() != config.PrecedenceFirstMatch {
		t.Errorf("Expected first-match, got %q", cfg.RobotsPrecedence())
	}
	if cfg.AdmissionMode() != config.AdmissionModeTokenBucket {
		t.Errorf("Expected token-bucket, got %q", cfg.AdmissionMode())
	}
	if cfg.ListenAddr() != "127.0.0.1:7070" {
		t.Errorf("Expected ListenAddr '127.0.0.1:7070', got %q", cfg.ListenAddr())
	}
}

// TestInitConfigWithInvalidFlag tests that an invalid flag value fails validation
func TestInitConfigWithInvalidFlag(t *testing.T) {
	cmd.ResetFlags()
	cmd.SetAdmissionModeForTest("leaky-bucket")
	defer cmd.ResetFlags()

	_, err := cmd.InitConfigWithError()
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got: %v", err)
	}
}

// TestInitConfigWithConfigFile tests that flags override values from the file
func TestInitConfigWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawlgate.yaml")
	content := "user_agent: filebot/1.0\nadmission:\n  requests_per_second: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cmd.ResetFlags()
	cmd.SetConfigFileForTest(path)
	cmd.SetRequestsPerSecondForTest(7)
	defer cmd.ResetFlags()

	cfg, err := cmd.InitConfigWithError()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.UserAgent() != "filebot/1.0" {
		t.Errorf("Expected UserAgent from file 'filebot/1.0', got %q", cfg.UserAgent())
	}
	if cfg.RequestsPerSecond() != 7 {
		t.Errorf("Expected RequestsPerSecond from flag 7, got %v", cfg.RequestsPerSecond())
	}
}

// TestInitConfigWithMissingConfigFile tests that a missing file is reported
func TestInitConfigWithMissingConfigFile(t *testing.T) {
	cmd.ResetFlags()
	cmd.SetConfigFileForTest(filepath.Join(t.TempDir(), "missing.yaml"))
	defer cmd.ResetFlags()

	_, err := cmd.InitConfigWithError()
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("Expected ErrFileDoesNotExist, got: %v", err)
	}
}
