// Package services implements the reconciliation engine: pagination,
// change detection, permission resolution, batched commits and
// bounded-concurrency scope orchestration.
//
// Services contain the core business logic and orchestrate calls to
// driven ports (adapters). They are pure Go: provider SDK types never
// cross into this package.
package services
