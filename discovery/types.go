package discovery

import "strings"

// ExecutionInfo describes the most recent execution of a resource in an
// environment's applied state.
type ExecutionInfo struct {
	CompileStartedAt   *string  `json:"compileStartedAt,omitempty"`
	CompileCompletedAt *string  `json:"compileCompletedAt,omitempty"`
	ExecuteStartedAt   *string  `json:"executeStartedAt,omitempty"`
	ExecuteCompletedAt *string  `json:"executeCompletedAt,omitempty"`
	ExecutionTime      *float64 `json:"executionTime,omitempty"`
	RunElapsedTime     *float64 `json:"runElapsedTime,omitempty"`
	RunGeneratedAt     *string  `json:"runGeneratedAt,omitempty"`
	LastRunGeneratedAt *string  `json:"lastRunGeneratedAt,omitempty"`

	LastRunID     int64   `json:"lastRunId"`
	LastRunStatus *string `json:"lastRunStatus,omitempty"`
	LastRunError  *string `json:"lastRunError,omitempty"`

	// Tests only.
	LastRunFailures *int64 `json:"lastRunFailures,omitempty"`

	LastJobDefinitionID        *int64 `json:"lastJobDefinitionId,omitempty"`
	LastSuccessJobDefinitionID *int64 `json:"lastSuccessJobDefinitionId,omitempty"`
	LastSuccessRunID           *int64 `json:"lastSuccessRunId,omitempty"`
}

// ResourceNode is one trackable unit in an environment's dependency graph.
// The Discovery API models it as a union over resource types; here it is a
// single struct with a resourceType discriminant and per-variant fields left
// empty when they do not apply.
type ResourceNode struct {
	UniqueID      string   `json:"uniqueId,omitempty"`
	ResourceType  string   `json:"resourceType,omitempty"`
	Name          string   `json:"name,omitempty"`
	FQN           []string `json:"fqn,omitempty"`
	EnvironmentID int64    `json:"environmentId,omitempty"`
	ProjectID     int64    `json:"projectId,omitempty"`

	// Models, seeds and snapshots.
	Database    string `json:"database,omitempty"`
	Schema      string `json:"schema,omitempty"`
	Alias       string `json:"alias,omitempty"`
	PackageName string `json:"packageName,omitempty"`

	// Models only.
	MaterializedType string `json:"materializedType,omitempty"`
	ModelingLayer    string `json:"modelingLayer,omitempty"`
	Language         string `json:"language,omitempty"`
	Group            string `json:"group,omitempty"`
	Access           string `json:"access,omitempty"`

	ModelExecutionInfo    *ExecutionInfo `json:"modelExecutionInfo,omitempty"`
	SeedExecutionInfo     *ExecutionInfo `json:"seedExecutionInfo,omitempty"`
	SnapshotExecutionInfo *ExecutionInfo `json:"snapshotExecutionInfo,omitempty"`
	TestExecutionInfo     *ExecutionInfo `json:"testExecutionInfo,omitempty"`
}

// ExecutionInfo returns the variant's execution record, or nil when the
// resource type is unknown or the record is absent. The mapping from type
// to field is fixed here instead of derived from the type name at runtime.
func (n *ResourceNode) ExecutionInfo() *ExecutionInfo {
	switch strings.ToLower(n.ResourceType) {
	case "model":
		return n.ModelExecutionInfo
	case "seed":
		return n.SeedExecutionInfo
	case "snapshot":
		return n.SnapshotExecutionInfo
	case "test":
		return n.TestExecutionInfo
	default:
		return nil
	}
}

// Edge wraps a node in the paged resource connection.
type Edge struct {
	Node ResourceNode `json:"node"`
}

// PageInfo carries the cursor state of one page.
type PageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor,omitempty"`
	EndCursor       *string `json:"endCursor,omitempty"`
}

// RunResource is a resource normalized for log forwarding: the variant's
// execution record is lifted to a single executionInfo key and the
// type-specific keys are dropped.
type RunResource struct {
	ResourceNode
	ExecutionInfo *ExecutionInfo `json:"executionInfo"`
}
