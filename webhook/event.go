// Package webhook receives dbt Cloud job notifications and drives the
// forwarding pipeline: verify, parse, fetch, extract, batch, dispatch.
package webhook

import (
	"fmt"
	"strconv"

	"github.com/yairfalse/dbtrail/ingest"
)

// EventType identifies what a dbt Cloud webhook notifies about.
type EventType string

const (
	EventRunStarted   EventType = "job.run.started"
	EventRunCompleted EventType = "job.run.completed"
	EventRunErrored   EventType = "job.run.errored"
)

// Payload is the inbound webhook body.
type Payload struct {
	EventType   EventType `json:"eventType"`
	WebhookName string    `json:"webhookName"`
	Data        RunData   `json:"data"`
}

// RunData carries the run fields dbt Cloud sends with each event. The run
// id arrives as text even though the Discovery API reports it as a number.
type RunData struct {
	RunID           string `json:"runId"`
	EnvironmentID   int64  `json:"environmentId"`
	ProjectName     string `json:"projectName"`
	EnvironmentName string `json:"environmentName"`
	JobName         string `json:"jobName"`
	RunReason       string `json:"runReason"`
}

// RunContext is the run identity derived from one webhook delivery. It is
// immutable for the lifetime of the invocation and only feeds log tags and
// the correlation key.
type RunContext struct {
	EnvironmentID   int64
	RunID           int64
	ProjectName     string
	EnvironmentName string
	JobName         string
	WebhookName     string
	RunReason       string
}

// NewRunContext parses the payload's run identity. Strict base-10 parsing
// of the run id keeps the correlation with the Discovery API's numeric
// lastRunId exact; leading zeros are tolerated, anything else is rejected
// before any network call.
func NewRunContext(p *Payload) (*RunContext, error) {
	runID, err := strconv.ParseInt(p.Data.RunID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("webhook: parse runId %q: %w", p.Data.RunID, err)
	}

	return &RunContext{
		EnvironmentID:   p.Data.EnvironmentID,
		RunID:           runID,
		ProjectName:     p.Data.ProjectName,
		EnvironmentName: p.Data.EnvironmentName,
		JobName:         p.Data.JobName,
		WebhookName:     p.WebhookName,
		RunReason:       p.Data.RunReason,
	}, nil
}

// Tags returns the ordered log tags for this run.
func (rc *RunContext) Tags() []ingest.Tag {
	return []ingest.Tag{
		{Key: "project_name", Value: rc.ProjectName},
		{Key: "environment_name", Value: rc.EnvironmentName},
		{Key: "job_name", Value: rc.JobName},
		{Key: "run_id", Value: strconv.FormatInt(rc.RunID, 10)},
		{Key: "webhook_name", Value: rc.WebhookName},
		{Key: "run_reason", Value: rc.RunReason},
	}
}
