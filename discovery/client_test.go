package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/dbtrail/config"
)

func testConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Discovery.URL = url
	cfg.Discovery.PageSize = 2
	cfg.Discovery.Timeout = 5 * time.Second
	cfg.Secrets.ServiceToken = "dbtc_test_token"
	return cfg
}

// writeJSON mimics the Discovery API's responses, content type included.
func writeJSON(t *testing.T, w http.ResponseWriter, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func pageBody(edges []Edge, hasNext bool, endCursor string) map[string]any {
	pageInfo := map[string]any{
		"hasNextPage":     hasNext,
		"hasPreviousPage": false,
	}
	if endCursor != "" {
		pageInfo["endCursor"] = endCursor
	}
	return map[string]any{
		"data": map[string]any{
			"environment": map[string]any{
				"applied": map[string]any{
					"resources": map[string]any{
						"edges":      edges,
						"pageInfo":   pageInfo,
						"totalCount": len(edges),
					},
				},
			},
		},
	}
}

func modelEdge(uniqueID string, runID int64) Edge {
	return Edge{Node: ResourceNode{
		UniqueID:           uniqueID,
		ResourceType:       "model",
		Name:               uniqueID,
		ModelExecutionInfo: &ExecutionInfo{LastRunID: runID},
	}}
}

func TestNewClient_MissingToken(t *testing.T) {
	cfg := testConfig("http://localhost:0")
	cfg.Secrets.ServiceToken = ""

	_, err := NewClient(cfg)
	assert.ErrorIs(t, err, config.ErrMissingServiceToken)
}

func TestFetchAppliedResources_PaginatesToExhaustion(t *testing.T) {
	pages := [][]Edge{
		{modelEdge("model.jaffle.a", 55), modelEdge("model.jaffle.b", 55)},
		{modelEdge("model.jaffle.c", 55), modelEdge("model.jaffle.d", 12)},
		{modelEdge("model.jaffle.e", 55)},
	}

	var requests int
	var cursors []any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer dbtc_test_token", r.Header.Get("Authorization"))

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "ModelAppliedStateNode")
		assert.Equal(t, float64(10), req.Variables["environmentId"])
		assert.Equal(t, float64(2), req.Variables["first"])
		cursors = append(cursors, req.Variables["after"])

		i := requests
		requests++
		last := i == len(pages)-1
		cursor := ""
		if !last {
			cursor = fmt.Sprintf("cursor-%d", i)
		}
		writeJSON(t, w, pageBody(pages[i], !last, cursor))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	edges, err := client.FetchAppliedResources(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, requests)
	assert.Equal(t, []any{nil, "cursor-0", "cursor-1"}, cursors)

	require.Len(t, edges, 5)
	assert.Equal(t, "model.jaffle.a", edges[0].Node.UniqueID)
	assert.Equal(t, "model.jaffle.e", edges[4].Node.UniqueID)
}

func TestFetchAppliedResources_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, pageBody([]Edge{modelEdge("model.jaffle.a", 55)}, false, ""))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	edges, err := client.FetchAppliedResources(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestFetchAppliedResources_MissingContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A JSON body with no content-type header, as a misbehaving proxy
		// would deliver it.
		w.Header()["Content-Type"] = nil
		require.NoError(t, json.NewEncoder(w).Encode(pageBody([]Edge{modelEdge("model.jaffle.a", 55)}, false, "")))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	edges, err := client.FetchAppliedResources(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestFetchAppliedResources_TransportError(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.FetchAppliedResources(context.Background(), 10)
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
	assert.Equal(t, 1, requests, "no retry on transport errors")
}

func TestFetchAppliedResources_MidPaginationFailureDropsAll(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			writeJSON(t, w, pageBody([]Edge{modelEdge("model.jaffle.a", 55)}, true, "cursor-0"))
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	edges, err := client.FetchAppliedResources(context.Background(), 10)
	require.Error(t, err)
	assert.Nil(t, edges, "partial results must not be returned")
}

func TestFetchAppliedResources_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"errors": []map[string]any{{"message": "environment not found"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.FetchAppliedResources(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment not found")
}

func TestFetchAppliedResources_HonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client hanging up,
		// then stall well past the client deadline.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.FetchAppliedResources(ctx, 10)
	require.Error(t, err)
}
