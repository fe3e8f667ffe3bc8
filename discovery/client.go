// Package discovery pages the dbt Cloud Discovery API for an environment's
// applied resource graph and scopes it to a single run.
package discovery

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/yairfalse/dbtrail/config"
)

// TransportError is a non-success HTTP response from the Discovery API.
// The whole fetch aborts on the first one; no partial results survive.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("discovery: API returned %d: %s", e.StatusCode, e.Body)
}

// Client retrieves applied-state resources over GraphQL with cursor
// pagination. It holds no per-invocation state and is safe for concurrent
// use.
type Client struct {
	http     *resty.Client
	url      string
	pageSize int
}

// NewClient builds a Discovery API client from configuration. The service
// token is required; everything else has defaults.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Secrets.ServiceToken == "" {
		return nil, config.ErrMissingServiceToken
	}

	// ForceContentType keeps responses decoding even when a proxy strips
	// or rewrites the content type.
	httpc := resty.New().
		SetBaseURL(cfg.Discovery.URL).
		SetTimeout(cfg.Discovery.Timeout).
		SetAuthToken(cfg.Secrets.ServiceToken).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpc,
		url:      cfg.Discovery.URL,
		pageSize: cfg.Discovery.PageSize,
	}, nil
}

// URL returns the endpoint the client targets. Forwarded log records carry
// it as their hostname.
func (c *Client) URL() string {
	return c.url
}

type queryRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type queryResponse struct {
	Data *struct {
		Environment struct {
			Applied struct {
				Resources resourcePage `json:"resources"`
			} `json:"applied"`
		} `json:"environment"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type resourcePage struct {
	Edges      []Edge   `json:"edges"`
	PageInfo   PageInfo `json:"pageInfo"`
	TotalCount int      `json:"totalCount"`
}

// FetchAppliedResources pages the environment's resource graph to
// exhaustion and returns all edges in page order. Pagination is sequential:
// each request needs the previous page's end cursor.
func (c *Client) FetchAppliedResources(ctx context.Context, environmentID int64) ([]Edge, error) {
	var (
		edges []Edge
		after *string
		pages int
	)

	for {
		page, err := c.fetchPage(ctx, environmentID, after)
		if err != nil {
			return nil, err
		}

		edges = append(edges, page.Edges...)
		pages++

		zerolog.Ctx(ctx).Debug().
			Int("page", pages).
			Int("edges", len(page.Edges)).
			Int("total_count", page.TotalCount).
			Msg("fetched discovery page")

		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == nil {
			return edges, nil
		}
		after = page.PageInfo.EndCursor
	}
}

func (c *Client) fetchPage(ctx context.Context, environmentID int64, after *string) (*resourcePage, error) {
	vars := map[string]any{
		"environmentId": environmentID,
		"filter":        map[string]any{"types": resourceTypes},
		"first":         c.pageSize,
		"after":         after,
	}

	var out queryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(queryRequest{Query: appliedResourcesQuery, Variables: vars}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("")
	if err != nil {
		return nil, fmt.Errorf("discovery: post query: %w", err)
	}
	if resp.IsError() {
		return nil, &TransportError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("discovery: query failed: %s", out.Errors[0].Message)
	}
	if out.Data == nil {
		return nil, fmt.Errorf("discovery: response has no data")
	}

	return &out.Data.Environment.Applied.Resources, nil
}
