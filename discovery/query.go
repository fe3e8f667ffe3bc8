package discovery

// resourceTypes is the applied-state filter sent with every query.
var resourceTypes = []string{"Model", "Seed", "Snapshot", "Test"}

// appliedResourcesQuery selects the four applied-state node variants with
// their execution info aliased per variant, one page at a time.
const appliedResourcesQuery = `
query Applied($environmentId: BigInt!, $filter: AppliedResourcesFilter!, $first: Int, $after: String) {
  environment(id: $environmentId) {
    applied {
      resources(filter: $filter, first: $first, after: $after) {
        edges {
          node {
            ... on ModelAppliedStateNode {
              modelExecutionInfo: executionInfo {
                compileCompletedAt
                compileStartedAt
                executeCompletedAt
                executeStartedAt
                executionTime
                lastJobDefinitionId
                lastRunError
                lastRunGeneratedAt
                lastRunId
                lastRunStatus
                lastSuccessJobDefinitionId
                lastSuccessRunId
                runElapsedTime
                runGeneratedAt
              }
              access
              alias
              database
              environmentId
              fqn
              group
              language
              materializedType
              modelingLayer
              name
              packageName
              projectId
              uniqueId
              schema
              resourceType
            }
            ... on TestAppliedStateNode {
              testExecutionInfo: executionInfo {
                compileCompletedAt
                compileStartedAt
                executeCompletedAt
                executeStartedAt
                executionTime
                lastJobDefinitionId
                lastRunError
                lastRunFailures
                lastRunGeneratedAt
                lastRunId
                lastRunStatus
                lastSuccessJobDefinitionId
                lastSuccessRunId
                runElapsedTime
                runGeneratedAt
              }
              environmentId
              fqn
              name
              projectId
              uniqueId
              resourceType
            }
            ... on SeedAppliedStateNode {
              seedExecutionInfo: executionInfo {
                compileCompletedAt
                compileStartedAt
                executeCompletedAt
                executeStartedAt
                executionTime
                lastJobDefinitionId
                lastRunError
                lastRunGeneratedAt
                lastRunId
                lastRunStatus
                lastSuccessJobDefinitionId
                lastSuccessRunId
                runElapsedTime
                runGeneratedAt
              }
              alias
              database
              environmentId
              fqn
              name
              packageName
              projectId
              uniqueId
              schema
              resourceType
            }
            ... on SnapshotAppliedStateNode {
              snapshotExecutionInfo: executionInfo {
                compileCompletedAt
                compileStartedAt
                executeCompletedAt
                executeStartedAt
                executionTime
                lastJobDefinitionId
                lastRunError
                lastRunGeneratedAt
                lastRunId
                lastRunStatus
                lastSuccessJobDefinitionId
                lastSuccessRunId
                runElapsedTime
                runGeneratedAt
              }
              alias
              database
              environmentId
              fqn
              name
              packageName
              projectId
              uniqueId
              schema
              resourceType
            }
          }
        }
        pageInfo {
          endCursor
          hasNextPage
          hasPreviousPage
          startCursor
        }
        totalCount
      }
    }
  }
}
`
