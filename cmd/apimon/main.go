package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kabhi-dev/apimon/internal/alert"
	"github.com/kabhi-dev/apimon/internal/config"
	"github.com/kabhi-dev/apimon/internal/dashboard"
	"github.com/kabhi-dev/apimon/internal/logging"
	"github.com/kabhi-dev/apimon/internal/notify"
	"github.com/kabhi-dev/apimon/internal/probe"
	"github.com/kabhi-dev/apimon/internal/scheduler"
	"github.com/kabhi-dev/apimon/internal/server"
	"github.com/kabhi-dev/apimon/internal/store"
	"github.com/kabhi-dev/apimon/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "apimon",
		Short:        "Phased HTTP uptime and latency monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apimon %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor loop and HTTP API",
		RunE:  runServe,
	}
}

// loadConfig falls back to defaults when the config file is absent, so
// `apimon serve` works out of the box.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Alert sink: SMTP wins when configured, then webhook, else none.
	var sink notify.Notifier
	if s := notify.NewSMTP(cfg.Alerts.SMTP.Host, cfg.Alerts.SMTP.Port,
		cfg.Alerts.SMTP.Username, cfg.Alerts.SMTP.Password, cfg.Alerts.SMTP.From); s != nil {
		sink = s
	} else if w := notify.NewWebhook(cfg.Alerts.Webhook.URL); w != nil {
		sink = w
	}
	alerter := alert.New(sink, logger)

	prober := probe.New(cfg.Scheduler.ProbeTimeout.Duration)
	sched := scheduler.New(db, prober, alerter,
		cfg.Scheduler.Tick.Duration, cfg.Scheduler.ProbeTimeout.Duration, logger)

	apiServer := server.New(db, prober, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()
	logger.Info("scheduler_started",
		zap.Duration("tick", cfg.Scheduler.Tick.Duration),
		zap.Duration("probe_timeout", cfg.Scheduler.ProbeTimeout.Duration),
	)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	// Let the in-flight endpoint finish or time out.
	<-schedDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}

	logger.Info("shutdown_complete")
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <url> [url...]",
		Short: "Run a one-off phased check against one or more URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	prober := probe.New(cfg.Scheduler.ProbeTimeout.Duration)
	return executeCheck(cmd.OutOrStdout(), prober, args)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the last-known status of every monitored endpoint",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return executeStatus(cmd.OutOrStdout(), db)
}
