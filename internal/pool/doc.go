// Package pool runs sync jobs for many issuers on a fixed set of workers.
//
// Workers pull requests from a shared queue and send each terminal outcome
// over a channel to a single collector. A failing or panicking issuer never
// stops the others, and Run returns only after every issuer has an outcome.
package pool
