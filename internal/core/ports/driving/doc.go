// Package driving defines the interfaces through which the application
// is driven: the "primary" ports in hexagonal architecture. Callers
// (CLI, scheduler, job control) depend on these interfaces; core
// services implement them.
package driving
