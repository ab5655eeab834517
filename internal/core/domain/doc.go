// Package domain defines the core business entities for ragify.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentBlob: An uploaded file before extraction
//   - Chunk: A bounded segment of extracted text, the unit of embedding
//   - IndexEntry: A chunk together with its embedding vector
//   - Scope: The identity boundary owning one knowledge base and one history
//   - Turn: A single question/answer exchange
//   - User, FileRecord: Records owned by the persistence collaborator
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
