package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/api"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/logging"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/telemetry"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/ws"
	"github.com/vinitparekh17/ActoEngine-sub006/web"
)

var (
	servePort    int
	serveDevMode bool
)

// recentOnConnect is how many history entries a new dashboard client receives.
const recentOnConnect = 50

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the impact analysis API and dashboard",
	Long: `Serve the impact analysis REST API, the live dashboard and Prometheus
metrics on localhost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Directory, cfg.Logging.RetentionDays)
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if serveDevMode {
			cfg.Server.DevMode = true
		}

		shutdownTracing, err := telemetry.Setup(cfg.Telemetry.Tracing, version, os.Stderr)
		if err != nil {
			return fmt.Errorf("configuring tracing: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := ws.NewHub(logger)
		eng, err := engine.Open(ctx, cfg, logger, engine.WithNotifier(hub))
		if err != nil {
			return fmt.Errorf("opening engine: %w", err)
		}
		hub.SetHistoryProvider(func() ([]state.Entry, error) {
			h, err := eng.History()
			if err != nil {
				return nil, err
			}
			return h.Recent(recentOnConnect), nil
		})
		hub.SetAnalyst(eng)
		go hub.Run(ctx)

		distFS, err := fs.Sub(web.DistFS, "dist")
		if err != nil {
			return fmt.Errorf("loading embedded dashboard: %w", err)
		}

		srv := api.New(eng, logger, cfg.Server.Port,
			api.WithStaticFS(distFS),
			api.WithHub(hub),
			api.WithDevMode(cfg.Server.DevMode),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		logger.Info("acto server listening", "url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port), "policy", eng.Policy().Version)

		var runErr error
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				runErr = err
			}
		case <-ctx.Done():
			logger.Info("shutting down server")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
		if err := eng.Close(shutdownCtx); err != nil {
			logger.Warn("closing engine", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
		return runErr
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8230, "port for the API server (default: server.port)")
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "enable CORS for development mode")
	rootCmd.AddCommand(serveCmd)
}
