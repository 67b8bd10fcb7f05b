// Package extlicense owns everything on the external side of the
// reconciliation boundary: the HTTP client for the third-party license API,
// the error taxonomy for its failure modes, the local snapshot store, and
// the raw-payload archiver.
//
// # Client reliability
//
// Every API call passes through a shared circuit breaker and a retry policy
// (exponential backoff with jitter). Errors classify themselves: network,
// timeout and rate-limit failures are retryable; auth failures are fatal
// and abort the sync; validation failures skip a single record. Concurrent
// pagination calls share one breaker instance, so its failure counter sees
// the external system as a whole.
//
// # Snapshot
//
// Each sync cycle persists the fetched records into the
// external_license_records table via bulk upsert. The snapshot is the
// stable input for duplicate analysis and can optionally be archived raw to
// object storage for audits.
package extlicense
