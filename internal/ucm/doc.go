// Package ucm maintains the uncertainty covariance matrix (UCM) of an
// ensemble run.
//
// An Accumulator owns the live symmetric matrix and grows it by one row and
// one column per appended member. Readers never touch the live matrix: they
// get immutable MatrixView copies, either directly through Snapshot or
// through the stable slot that Publish swaps in.
//
// Persistence uses three named slots in a Store. Two interchangeable write
// buffers alternate by row-index parity, and a third stable slot is
// rewritten on every swap; only the stable view is handed to the
// decomposition. Backends: FileStore, MemStore, PostgresStore and, in cgo
// builds, KuzuStore.
package ucm
