// Package bag implements the configuration bag shared by all interceptor
// hooks and retry decisions within one execution. Values are keyed by their
// Go type, giving typed retrieval without string key collisions. The bag is
// mutably shared across hook calls but never mutated concurrently, because
// dispatch within an execution is strictly sequential.
package bag
