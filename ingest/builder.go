// Package ingest converts run-scoped resources into Datadog log items and
// submits them in capped batches.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/yairfalse/dbtrail/discovery"
)

const (
	// Source and Service tag every forwarded record.
	Source  = "dbt_cloud"
	Service = "dbt_cloud_webhooks"

	// MaxBatchSize is the Datadog logs intake cap per request.
	MaxBatchSize = 1000
)

// Tag is one key:value pair attached to every forwarded log record.
// Tags are an ordered slice so the joined string is deterministic.
type Tag struct {
	Key   string
	Value string
}

// JoinTags renders tags as the comma-joined key:value string Datadog expects.
func JoinTags(tags []Tag) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, t.Key+":"+t.Value)
	}
	return strings.Join(parts, ",")
}

// BuildItems produces one log item per resource. The message is the
// resource serialized compactly; hostname carries the Discovery API URL the
// resource came from.
func BuildItems(resources []discovery.RunResource, tags []Tag, hostname string) ([]datadogV2.HTTPLogItem, error) {
	ddtags := JoinTags(tags)

	items := make([]datadogV2.HTTPLogItem, 0, len(resources))
	for _, r := range resources {
		message, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("ingest: marshal resource %s: %w", r.UniqueID, err)
		}
		items = append(items, datadogV2.HTTPLogItem{
			Ddsource: datadog.PtrString(Source),
			Ddtags:   datadog.PtrString(ddtags),
			Hostname: datadog.PtrString(hostname),
			Message:  string(message),
			Service:  datadog.PtrString(Service),
		})
	}
	return items, nil
}

// Chunk splits items into contiguous batches of at most size, preserving
// order. Zero items yields zero batches.
func Chunk(items []datadogV2.HTTPLogItem, size int) [][]datadogV2.HTTPLogItem {
	if size < 1 {
		size = MaxBatchSize
	}

	var batches [][]datadogV2.HTTPLogItem
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
