// Package domain defines the core business entities for postsmith.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Job: a persisted record of one asynchronous generation request
//   - Newsletter: a source document that can be chunked and indexed
//   - Chunk: a bounded text span with its embedding
//   - RetrievalResult: ranked chunks grouped by source newsletter
//   - CostEntry: one append-only cost ledger line
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
