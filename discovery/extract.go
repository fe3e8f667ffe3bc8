package discovery

// ExtractRunResources filters the full edge list down to resources whose
// most recent execution belongs to runID, preserving edge order. Nodes
// without a resource type or execution record never match. An empty result
// is normal: the environment holds resources the run never touched.
func ExtractRunResources(edges []Edge, runID int64) []RunResource {
	var matched []RunResource

	for _, edge := range edges {
		info := edge.Node.ExecutionInfo()
		if info == nil || info.LastRunID != runID {
			continue
		}

		node := edge.Node
		node.ModelExecutionInfo = nil
		node.SeedExecutionInfo = nil
		node.SnapshotExecutionInfo = nil
		node.TestExecutionInfo = nil

		matched = append(matched, RunResource{
			ResourceNode:  node,
			ExecutionInfo: info,
		})
	}

	return matched
}
