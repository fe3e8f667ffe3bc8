package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds operational metrics for the webhook pipeline using
// OTEL semantic conventions.
type PipelineMetrics struct {
	webhooksReceived metric.Int64Counter
	fetchDuration    metric.Float64Histogram
	resourcesMatched metric.Int64Counter
	batchesSubmitted metric.Int64Counter
}

// NewPipelineMetrics creates pipeline metrics on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("dbtrail.webhook")

	webhooksReceived, err := meter.Int64Counter(
		"dbtrail.webhooks.received",
		metric.WithDescription("Number of webhook deliveries received"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"dbtrail.discovery.fetch.duration",
		metric.WithDescription("Duration of full Discovery API fetches"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	resourcesMatched, err := meter.Int64Counter(
		"dbtrail.resources.matched",
		metric.WithDescription("Number of resources matched to a triggering run"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	batchesSubmitted, err := meter.Int64Counter(
		"dbtrail.ingest.batches",
		metric.WithDescription("Number of log batches submitted to Datadog"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		webhooksReceived: webhooksReceived,
		fetchDuration:    fetchDuration,
		resourcesMatched: resourcesMatched,
		batchesSubmitted: batchesSubmitted,
	}, nil
}

// RecordWebhook records one webhook delivery with its outcome.
func (m *PipelineMetrics) RecordWebhook(ctx context.Context, eventType, status string) {
	m.webhooksReceived.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.String("status", status),
		),
	)
}

// RecordFetchDuration records how long a full paginated fetch took.
func (m *PipelineMetrics) RecordFetchDuration(ctx context.Context, d time.Duration, status string) {
	m.fetchDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}

// RecordResourcesMatched records how many resources belonged to the run.
func (m *PipelineMetrics) RecordResourcesMatched(ctx context.Context, count int64) {
	m.resourcesMatched.Add(ctx, count)
}

// RecordBatchSubmission records one batch submission with its outcome.
func (m *PipelineMetrics) RecordBatchSubmission(ctx context.Context, items int, outcome string) {
	m.batchesSubmitted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.Int("batch.size", items),
		),
	)
}
