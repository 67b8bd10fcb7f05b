// Package license is the internal system of record for licenses and the
// home of duplicate management.
//
// # Ownership
//
// Product, plan, and seat counts are internally owned: nothing in this
// service or in sync ever overwrites them from external data. Contact and
// business metadata fields may be refreshed by the reconciliation engine.
//
// # Duplicate management
//
// The service exposes an interactive duplicate check, a manual review
// queue fed by the sync engine's detector, and consolidation. Every
// consolidation, automatic or manual, writes an immutable decision record
// naming the master, the merged duplicates, the strategy, and who applied
// it. Cancelled duplicates keep a back-pointer to their master.
package license
