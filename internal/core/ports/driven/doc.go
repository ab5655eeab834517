// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Extractor / ExtractorRegistry: Turn uploaded files into text
//   - Chunker: Splits text into overlapping chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: In-memory similarity search over embedded chunks
//   - IndexStore: Persists a vector index as two on-disk artifacts
//   - DistributedLock: Serialises index writes per user
//   - ConfigStore: Application configuration
//
// # Scope Specific Interfaces
//
//   - RecordStore, BlobStore, PasswordHasher: Durable per-user knowledge
//   - SessionStore: Ephemeral session knowledge
//
// # Optional Interfaces
//
// These can be nil; the application still builds knowledge without them:
//
//   - LLMService / Answerer: Without them, questions cannot be answered.
//   - PromptStore: Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
