package logging_test

import (
	"testing"

	"github.com/rohmanhakim/crawlgate/internal/logging"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, development := range []bool{true, false} {
		logger, err := logging.New(development)
		if err != nil {
			t.Fatalf("New(%v) error = %v", development, err)
		}
		if logger == nil {
			t.Fatalf("New(%v) returned nil logger", development)
		}
		logger.Info("logger ready", zap.Bool("development", development))
		_ = logger.Sync()
	}
}

func TestOrNop(t *testing.T) {
	if logging.OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}

	logger := zap.NewExample()
	if logging.OrNop(logger) != logger {
		t.Fatal("OrNop should return the provided logger")
	}
}
