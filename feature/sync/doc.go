// Package sync is the reconciliation engine: it pulls the external
// license population, detects duplicates, and reconciles each record into
// the internal store.
//
// # Coordinator
//
// A run walks Fetching, Deduplicating, Reconciling, Reporting and returns
// to idle. Runs are single-flight: a trigger while another run holds the
// slot is rejected with ErrSyncInProgress, never queued. A configurable
// timeout (default five minutes) bounds the whole run; an expired run is
// finalized as failed and releases the slot.
//
// # Matching and merging
//
// The matcher resolves each external record by strict priority, appId
// then email then countId, first hit wins. The merger computes a minimal
// per-field diff: external values overwrite contact and business
// metadata, internally owned fields (product, plan, seats) are never
// touched, and an empty diff produces no write, which makes re-syncs
// idempotent.
//
// # Batching
//
// Records are partitioned into fixed-size batches processed by a worker
// pool whose width adapts to the run size. Record failures are collected
// per record and never abort a batch. Writes to the same matched license
// are serialized by a keyed mutex.
package sync
