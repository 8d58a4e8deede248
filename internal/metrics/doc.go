// Package metrics provides lock-free counters and latency histograms for
// bearauth observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]. Histograms use 8 fixed buckets
// (≤5ms … +Inf). Both are allocation-free on the write path.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Exporters read
// Snapshot values; nothing here performs I/O.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import bearauth or any sibling package.
//   - Expose global metric registries.
package metrics
