// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ProviderSource: Enumerates scopes and fetches pages from a provider
//   - RecordStore: Record, group and permission persistence
//   - SyncPointStore: Checkpoint persistence
//   - EntitySink: Downstream consumer of committed and deleted records
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
