package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yairfalse/dbtrail/config"
	"github.com/yairfalse/dbtrail/discovery"
	"github.com/yairfalse/dbtrail/ingest"
	"github.com/yairfalse/dbtrail/telemetry"
	"github.com/yairfalse/dbtrail/webhook"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Run the dbtrail webhook server.

The server accepts signed dbt Cloud webhook deliveries on /webhook,
correlates each finished run with the Discovery API and forwards the
matched resources to Datadog Logs.

Endpoints:
- POST /webhook   signed dbt Cloud deliveries
- GET  /healthz   liveness probe
- GET  /metrics   Prometheus metrics (separate port)

Required environment:
- DBT_CLOUD_SERVICE_TOKEN   Discovery API bearer token
- DBT_CLOUD_WEBHOOK_SECRET  webhook signing secret
- DD_API_KEY                Datadog API key`,
	Example: `  dbtrail serve                           # defaults, secrets from env
  dbtrail serve --config dbtrail.toml    # tunables from file`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := telemetry.NewLogger(cfg.OTEL.ServiceName, cfg.Log.Level)

	ctx := cmd.Context()
	provider, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	client, err := discovery.NewClient(cfg)
	if err != nil {
		return err
	}
	submitter, err := ingest.NewDatadogSubmitter(cfg)
	if err != nil {
		return err
	}

	handler := webhook.NewHandler(cfg, client, submitter, metrics)
	router := webhook.NewRouter(handler, logger, cfg.Server.RequestTimeout)

	webhookSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(provider.Registry(), promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	g.Add(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("webhook server listening")
		return webhookSrv.ListenAndServe()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = webhookSrv.Shutdown(shutdownCtx)
	})
	g.Add(func() error {
		logger.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics server listening")
		return metricsSrv.ListenAndServe()
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	})

	err = g.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		logger.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
