// Package dedupe detects duplicate business entities across the external
// license snapshot and the internal license store.
//
// # Passes
//
// Detection runs three independent passes:
//
//   - external: records sharing {email domain, normalized DBA}. Members
//     with disjoint validity windows are treated as renewals and excluded.
//   - internal: fuzzy-DBA clusters confirmed by a secondary signal (email
//     domain, zip, or phone), built with union-find.
//   - cross-system: external records paired against internal licenses that
//     carry no external link yet.
//
// # Scoring
//
// Each candidate carries an additive confidence score capped at 100. The
// detector routes scores at or above the auto threshold to automatic
// consolidation, scores at or above the review threshold to the manual
// review queue, and discards the rest.
//
// # Normalization
//
// DBA names are lowercased, stripped of punctuation and trailing legal
// suffixes (LLC, Inc, Corp, ...) before comparison. Fuzzy equality is
// normalized Levenshtein similarity against a configurable ratio.
package dedupe
