// Package jobstore persists scheduled job descriptors.
//
// Two implementations share the Store interface:
//
//   - SQLiteStore is durable. Its rows are the only record of what has been
//     scheduled, and restart recovery trusts them over the schedule file.
//     Multi-row writes run in a single transaction so a crash never leaves a
//     partial schedule behind. It also keeps a run history.
//   - MemoryStore is ephemeral and starts empty on every boot. It holds
//     diagnostic jobs such as the monitor, which must never reach the
//     durable store.
package jobstore
