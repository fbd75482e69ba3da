// Package ir holds the data model shared by every phase of the pipeline:
// cluster definitions, expanded graphs, signatures, primitive manifests and
// runtime values, together with their wire JSON and canonical hashing.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Conventions:
//   - All JSON tags use snake_case
//   - Tagged unions serialize with a "type" discriminator
//   - Hashing goes through MarshalCanonical, never encoding/json
//   - Floats never reach canonical JSON; numbers are hashed through FormatNumber
package ir
