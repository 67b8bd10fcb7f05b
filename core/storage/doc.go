// Package storage provides the object storage client used to archive raw
// external API snapshots.
//
// Each sync cycle can optionally persist the exact payload fetched from the
// external license API as snapshots/<operation-id>.json. The archive is an
// audit aid: when a merge decision is questioned later, the raw input that
// produced it can be retrieved without replaying the external API.
//
// The Client interface is a thin wrapper over the Minio client so tests can
// substitute a mock (see the mocks subpackage).
package storage
