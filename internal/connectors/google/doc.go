// Package google provides shared infrastructure for Google API sources:
// service construction, rate limiting, and error normalisation.
package google
