// Package task owns the image analysis queue: the task state machine, the
// FIFO queue with its current slot and history, the single-consumer worker
// loop, and snapshot persistence with crash recovery.
//
// A queue is shared between HTTP handlers, which enqueue work and read
// status, and one Worker, which drains it. Snapshots are written through a
// SnapshotStore so that a restart resumes pending work and records any task
// that was cut off mid-analysis as interrupted.
package task
