// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - JobStore: Job persistence and change subscription
//   - NewsletterStore: Newsletter and chunk-record persistence
//   - ContextStore: Trend/idea/session persistence
//   - CostLedger: Append-only cost ledger
//   - VectorStore: Vector database (Qdrant or in-memory)
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: Completion provider
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ImageGenerator: Without it, jobs complete without an asset.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
