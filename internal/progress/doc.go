// Package progress provides the event primitives and the broker that fans
// job lifecycle updates out to per-job subscribers and global sinks. The
// broker retains the latest event per job so late subscribers can observe
// that a job already finished.
package progress
