// Package store persists issuer history and answers the currency check.
//
// Rows are keyed by (issuer, trade_date) and written with an upsert, so
// saving the same records twice leaves one copy. Both backends share the
// schema below.
//
//	history(issuer, trade_date, last_price, max_price, min_price, volume,
//	        turnover_best, PRIMARY KEY (issuer, trade_date))
package store
