// Package connectors contains provider source implementations. Each
// provider decodes its native payloads and error types at this boundary,
// so the sync engine only ever sees domain types.
package connectors
