package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/dbtrail/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	cfg := config.OTELConfig{
		ServiceName: "test-dbtrail",
		Traces:      config.TracesConfig{Enabled: false},
		Metrics:     config.MetricsConfig{Enabled: false},
	}

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.NotNil(t, p.Tracer())
	assert.NotNil(t, p.Meter())
	assert.NotNil(t, p.Registry())

	err = p.Shutdown(context.Background())
	require.NoError(t, err)
}

func TestNewProvider_WithEndpoint(t *testing.T) {
	cfg := config.OTELConfig{
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test-dbtrail",
		Traces:      config.TracesConfig{Enabled: true, SampleRate: 1.0},
		Metrics:     config.MetricsConfig{Enabled: true},
	}

	// Provider setup should succeed even without a real collector.
	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Shutdown may fail because no collector is running; that's fine here.
	_ = p.Shutdown(ctx)
}

func TestProvider_StartSpan(t *testing.T) {
	cfg := config.OTELConfig{ServiceName: "test-dbtrail"}

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)

	ctx, span := p.StartSpan(context.Background(), "forward-run")
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	span.End()
	_ = p.Shutdown(context.Background())
}

func TestNewPipelineMetrics(t *testing.T) {
	m, err := NewPipelineMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	m.RecordWebhook(ctx, "job.run.completed", "success")
	m.RecordFetchDuration(ctx, 120*time.Millisecond, "success")
	m.RecordResourcesMatched(ctx, 3)
	m.RecordBatchSubmission(ctx, 3, "success")
}

func TestNewLogger_Levels(t *testing.T) {
	logger := NewLogger("dbtrail", "debug")
	assert.Equal(t, "debug", logger.GetLevel().String())

	logger = NewLogger("dbtrail", "nonsense")
	assert.Equal(t, "info", logger.GetLevel().String())
}
