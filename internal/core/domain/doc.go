// Package domain defines the core business entities for the sync engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A synced content unit (file, page, article, container row)
//   - RecordGroup: A container (drive, workspace, knowledge base)
//   - Permission: A normalised access grant
//   - SyncPoint: A per-scope sync checkpoint
//   - RawItem: A decoded provider item before reconciliation
//   - RecordUpdate: The diff produced for one raw item
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
