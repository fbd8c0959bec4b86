package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rohmanhakim/crawlgate/internal/api"
	"github.com/rohmanhakim/crawlgate/internal/build"
	"github.com/rohmanhakim/crawlgate/internal/logging"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve robots and admission decisions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.DevelopmentLog())
		if err != nil {
			return fmt.Errorf("error initializing logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc := newServices(cfg, logger, nil, nil)
		server := api.NewServer(svc.policies, svc.scheduler, svc.collectors.Handler(), svc.collectors, logger)

		return serve(ctx, cfg.ListenAddr(), server.Handler(), svc, logger)
	},
}

func serve(ctx context.Context, addr string, handler http.Handler, svc *services, logger *zap.Logger) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	janitorCtx, cancelJanitor := context.WithCancel(ctx)
	defer cancelJanitor()
	go svc.scheduler.RunJanitor(janitorCtx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("version", build.FullVersion()),
			zap.String("instance_id", svc.recorder.InstanceID()),
		)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
