package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairfalse/dbtrail/config"
	"github.com/yairfalse/dbtrail/discovery"
	"github.com/yairfalse/dbtrail/ingest"
	"github.com/yairfalse/dbtrail/telemetry"
)

// maxBodySize caps inbound webhook bodies. dbt Cloud payloads are tiny.
const maxBodySize = 1 << 20

// Fetcher pages an environment's applied resource graph. Satisfied by
// *discovery.Client.
type Fetcher interface {
	FetchAppliedResources(ctx context.Context, environmentID int64) ([]discovery.Edge, error)
	URL() string
}

// Result summarizes one pipeline invocation.
type Result struct {
	Resources int
	Batches   []ingest.BatchResult
}

// Failed counts batches the ingestion backend rejected.
func (r *Result) Failed() int {
	var n int
	for _, b := range r.Batches {
		if !b.OK() {
			n++
		}
	}
	return n
}

// Handler sequences the pipeline for each webhook delivery. It holds only
// read-only configuration and collaborators; concurrent invocations are
// fully isolated.
type Handler struct {
	cfg       *config.Config
	fetcher   Fetcher
	submitter ingest.Submitter
	metrics   *telemetry.PipelineMetrics
}

// NewHandler wires the orchestrator with its collaborators.
func NewHandler(cfg *config.Config, fetcher Fetcher, submitter ingest.Submitter, metrics *telemetry.PipelineMetrics) *Handler {
	return &Handler{
		cfg:       cfg,
		fetcher:   fetcher,
		submitter: submitter,
		metrics:   metrics,
	}
}

// ServeWebhook is the POST /webhook endpoint.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if err := VerifySignature(body, r.Header.Get("Authorization"), h.cfg.Secrets.WebhookSecret); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, ErrMissingSignature) {
			status = http.StatusBadRequest
		}
		logger.Warn().Err(err).Msg("webhook rejected")
		h.metrics.RecordWebhook(ctx, "unknown", "rejected")
		writeError(w, status, err.Error())
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	logger.Info().
		Str("event_type", string(payload.EventType)).
		Str("webhook_name", payload.WebhookName).
		Str("run_id", payload.Data.RunID).
		Int64("environment_id", payload.Data.EnvironmentID).
		Msg("webhook received")

	if payload.EventType == EventRunStarted {
		// Nothing has executed yet; there is no metadata to forward.
		h.metrics.RecordWebhook(ctx, string(payload.EventType), "skipped")
		writeSuccess(w)
		return
	}

	rc, err := NewRunContext(&payload)
	if err != nil {
		h.metrics.RecordWebhook(ctx, string(payload.EventType), "rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Forward(ctx, rc)
	if err != nil {
		h.metrics.RecordWebhook(ctx, string(payload.EventType), "error")
		writeError(w, http.StatusBadGateway, "failed to forward run metadata")
		return
	}

	if result.Failed() > 0 && h.cfg.Ingest.FailOnError {
		h.metrics.RecordWebhook(ctx, string(payload.EventType), "error")
		writeError(w, http.StatusBadGateway, "failed to submit logs")
		return
	}

	h.metrics.RecordWebhook(ctx, string(payload.EventType), "success")
	writeSuccess(w)
}

// Forward runs fetch -> extract -> batch -> dispatch for one run. The
// stages are strictly sequential: each needs the complete result of the
// previous one.
func (h *Handler) Forward(ctx context.Context, rc *RunContext) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	start := time.Now()
	edges, err := h.fetcher.FetchAppliedResources(ctx, rc.EnvironmentID)
	if err != nil {
		h.metrics.RecordFetchDuration(ctx, time.Since(start), "error")
		logger.Error().Err(err).
			Int64("environment_id", rc.EnvironmentID).
			Int64("run_id", rc.RunID).
			Msg("discovery fetch failed")
		return nil, err
	}
	h.metrics.RecordFetchDuration(ctx, time.Since(start), "success")

	matched := discovery.ExtractRunResources(edges, rc.RunID)
	h.metrics.RecordResourcesMatched(ctx, int64(len(matched)))

	logger.Info().
		Int("edges", len(edges)).
		Int("matched", len(matched)).
		Int64("run_id", rc.RunID).
		Msg("extracted run resources")

	items, err := ingest.BuildItems(matched, rc.Tags(), h.fetcher.URL())
	if err != nil {
		return nil, err
	}

	result := &Result{Resources: len(matched)}
	for _, batch := range ingest.Chunk(items, h.cfg.Ingest.BatchSize) {
		res := h.submitter.Submit(ctx, batch)
		result.Batches = append(result.Batches, res)

		outcome := "success"
		if !res.OK() {
			outcome = "error"
			logger.Error().Err(res.Err).
				Int("items", res.Items).
				Int("status_code", res.StatusCode).
				Msg("log batch submission failed")
		} else {
			logger.Info().
				Int("items", res.Items).
				Int("status_code", res.StatusCode).
				Msg("log batch submitted")
		}
		h.metrics.RecordBatchSubmission(ctx, res.Items, outcome)
	}

	return result, nil
}

func writeSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"success"}`))
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
