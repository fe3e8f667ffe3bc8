package ingest

import (
	"context"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/yairfalse/dbtrail/config"
)

// BatchResult records the outcome of one batch submission. The orchestrator
// collects these and decides, per policy, whether a failure is fatal.
type BatchResult struct {
	Items      int
	StatusCode int
	Err        error
}

// OK reports whether the batch was accepted.
func (r BatchResult) OK() bool {
	return r.Err == nil && r.StatusCode < 400
}

// Submitter hands one batch of log items to the ingestion backend.
type Submitter interface {
	Submit(ctx context.Context, batch []datadogV2.HTTPLogItem) BatchResult
}

// DatadogSubmitter submits batches through the official Datadog logs API.
type DatadogSubmitter struct {
	api    *datadogV2.LogsApi
	apiKey string
	appKey string
	site   string
}

// NewDatadogSubmitter builds a submitter from configuration. The API key is
// required.
func NewDatadogSubmitter(cfg *config.Config) (*DatadogSubmitter, error) {
	if cfg.Secrets.DatadogAPIKey == "" {
		return nil, config.ErrMissingDatadogAPIKey
	}

	client := datadog.NewAPIClient(datadog.NewConfiguration())
	return &DatadogSubmitter{
		api:    datadogV2.NewLogsApi(client),
		apiKey: cfg.Secrets.DatadogAPIKey,
		appKey: cfg.Secrets.DatadogAppKey,
		site:   cfg.Ingest.Site,
	}, nil
}

// Submit sends one batch to Datadog. The caller's context carries the
// hosting request's deadline.
func (s *DatadogSubmitter) Submit(ctx context.Context, batch []datadogV2.HTTPLogItem) BatchResult {
	result := BatchResult{Items: len(batch)}

	_, httpResp, err := s.api.SubmitLog(s.authContext(ctx), batch)
	if httpResp != nil {
		result.StatusCode = httpResp.StatusCode
	}
	result.Err = err
	return result
}

func (s *DatadogSubmitter) authContext(ctx context.Context) context.Context {
	keys := map[string]datadog.APIKey{
		"apiKeyAuth": {Key: s.apiKey},
	}
	if s.appKey != "" {
		keys["appKeyAuth"] = datadog.APIKey{Key: s.appKey}
	}
	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, keys)
	if s.site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{
			"site": s.site,
		})
	}
	return ctx
}
