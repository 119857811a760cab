// Package worker defines the capability contracts for pipeline stages.
//
// A Worker is one processing step: it receives an item, transforms it and
// returns the items to forward downstream. Most workers are 1-to-1 and
// return the item they were given; re-sequencing filters such as the
// Orderer may hold items back and emit several at once. A worker must not
// retain a reference to an item across calls, and must tolerate being
// invoked concurrently across distinct replica instances of the same
// worker type.
//
// A Producer feeds the earliest thread group of a pipeline that is not
// externally driven. End-of-stream from the producer is what triggers the
// natural drain-to-completion shutdown of the whole topology.
package worker
