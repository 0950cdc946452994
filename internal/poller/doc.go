// Package poller implements the periodic sync driver.
//
// The poller:
//   - Runs a full sync cycle on a cron schedule (weekday evenings by default)
//   - Optionally runs once immediately on start
//   - Skips a tick while the previous cycle is still running
//   - Bounds each cycle with an optional timeout
package poller
