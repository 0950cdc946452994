// Package syncjob brings one issuer up to date.
//
// A job derives a span of year windows from the issuer's last-known trade
// date, fetches the windows oldest first, folds the per-window results into
// a single outcome and hands only rows newer than the last-known date to
// storage.
package syncjob
