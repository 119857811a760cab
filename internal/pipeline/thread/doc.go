// Package thread runs an assembled pipeline topology.
//
// Each thread group is an ordered chain of workers bound to one input and
// one output queue; groups sharing a thread id are stepped round-robin by
// a single goroutine. The Manager owns every group and queue, drives the
// Idle -> Running -> Stopped lifecycle, and exposes the outermost queues
// as boundary ports when a side of the pipeline is externally driven.
//
// Failure policy is fail-fast: the first fatal stage error stops the
// whole run and is retrievable through Err. A producer reaching
// end-of-stream instead drains the topology to completion: its output
// queue closes once all writers detach, every downstream group exits
// after emptying its input, and the manager transitions to Stopped on
// its own.
package thread
