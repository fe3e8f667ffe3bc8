package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/dbtrail/ingest"
)

func completedPayload(runID string) *Payload {
	return &Payload{
		EventType:   EventRunCompleted,
		WebhookName: "datadog-forwarder",
		Data: RunData{
			RunID:           runID,
			EnvironmentID:   10,
			ProjectName:     "jaffle_shop",
			EnvironmentName: "prod",
			JobName:         "Nightly build",
			RunReason:       "Kicked off from UI",
		},
	}
}

func TestNewRunContext_ParsesRunID(t *testing.T) {
	rc, err := NewRunContext(completedPayload("55"))
	require.NoError(t, err)

	assert.EqualValues(t, 55, rc.RunID)
	assert.EqualValues(t, 10, rc.EnvironmentID)
	assert.Equal(t, "datadog-forwarder", rc.WebhookName)
}

func TestNewRunContext_LeadingZeros(t *testing.T) {
	rc, err := NewRunContext(completedPayload("055"))
	require.NoError(t, err)
	assert.EqualValues(t, 55, rc.RunID)
}

func TestNewRunContext_RejectsNonNumericRunID(t *testing.T) {
	for _, bad := range []string{"", "12abc", "0x10", "1e3", " 55"} {
		t.Run("runId_"+bad, func(t *testing.T) {
			_, err := NewRunContext(completedPayload(bad))
			assert.Error(t, err)
		})
	}
}

func TestRunContext_TagsOrder(t *testing.T) {
	rc, err := NewRunContext(completedPayload("55"))
	require.NoError(t, err)

	want := []ingest.Tag{
		{Key: "project_name", Value: "jaffle_shop"},
		{Key: "environment_name", Value: "prod"},
		{Key: "job_name", Value: "Nightly build"},
		{Key: "run_id", Value: "55"},
		{Key: "webhook_name", Value: "datadog-forwarder"},
		{Key: "run_reason", Value: "Kicked off from UI"},
	}
	assert.Equal(t, want, rc.Tags())
}
