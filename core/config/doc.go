// Package config loads the application configuration from environment
// variables and an optional .env file.
//
// Defaults are declared as struct tags on the partial config types and bound
// into Viper via reflection, so every key is visible to AutomaticEnv even
// when unset. Environment variables map to nested keys by replacing dots
// with underscores: SYNC_BATCH_SIZE becomes sync.batch_size.
//
// The reconciliation thresholds (auto/review) and the adaptive-concurrency
// batch heuristics live here as configurable policy defaults.
package config
