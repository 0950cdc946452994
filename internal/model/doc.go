// Package model defines shared data types used across the history synchronizer.
//
// Conventions:
//   - Trade dates: time.Time at midnight UTC, no time-of-day component
//   - Prices, volume, turnover: null.Float; a missing or unparseable source cell is
//     invalid (absent), never zero
//   - Issuers: exchange codes as plain strings (e.g. "ALK", "KMB")
package model
