package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/dbtrail/config"
	"github.com/yairfalse/dbtrail/discovery"
	"github.com/yairfalse/dbtrail/ingest"
	"github.com/yairfalse/dbtrail/telemetry"
	"github.com/yairfalse/dbtrail/webhook"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <payload.json>",
	Short: "Forward a saved webhook payload once",
	Long: `Replay a dbt Cloud webhook payload from a file through the pipeline.

Signature verification is skipped: the payload comes from disk, not from
dbt Cloud. Useful for re-forwarding a run after a Datadog outage and for
testing credentials end to end.`,
	Example: `  dbtrail replay run-55.json
  dbtrail replay --config dbtrail.toml run-55.json`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(cfg.OTEL.ServiceName, cfg.Log.Level)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read payload file: %w", err)
	}

	var payload webhook.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	if payload.EventType == webhook.EventRunStarted {
		logger.Info().Msg("payload is a run-start event, nothing to forward")
		return nil
	}

	rc, err := webhook.NewRunContext(&payload)
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// The constructors check the secrets they actually need; the webhook
	// signing secret is not one of them here.
	client, err := discovery.NewClient(cfg)
	if err != nil {
		return err
	}
	submitter, err := ingest.NewDatadogSubmitter(cfg)
	if err != nil {
		return err
	}

	handler := webhook.NewHandler(cfg, client, submitter, metrics)

	ctx := logger.WithContext(cmd.Context())
	result, err := handler.Forward(ctx, rc)
	if err != nil {
		return err
	}

	logger.Info().
		Int64("run_id", rc.RunID).
		Int("resources", result.Resources).
		Int("batches", len(result.Batches)).
		Int("failed", result.Failed()).
		Msg("replay complete")

	if result.Failed() > 0 {
		return fmt.Errorf("replay: %d of %d batches failed", result.Failed(), len(result.Batches))
	}
	return nil
}
