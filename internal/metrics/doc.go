// Package metrics provides Prometheus metrics for monitoring sync runs.
//
// Key metrics:
//   - Runs started and issuer outcomes by status
//   - Window requests by result (ok, empty, error)
//   - Rows handed to storage
//   - Active sync jobs and job duration
//
// A nil *Metrics is valid and records nothing.
package metrics
