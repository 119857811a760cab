// Package queue provides the bounded, closeable FIFO that connects
// adjacent thread groups in a pipeline.
//
// A queue is the only channel through which items cross goroutine
// boundaries: ownership of an item transfers fully on every push and pop.
// Capacity bounds how far a fast producer can run ahead of a slow
// consumer, which is what gives the pipeline backpressure.
//
// Closing is terminal. Pending items may still be popped after a close so
// that a finished producer drains naturally through the rest of the
// topology; pushes fail immediately once closed. A queue shared by several
// writers (replicated stages) is closed for readers only when the last
// writer detaches, or when Close is called directly during shutdown.
package queue
