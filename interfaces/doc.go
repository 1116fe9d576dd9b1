// Package interfaces defines core interfaces and types for the credential
// registry, separating interface definitions from implementations.
//
// # Ledger Interfaces
//
// LedgerWriter: Submits registrations, document records, endorsements and
// endorser authorizations. Writes are asynchronous; a submission returns a
// pending Receipt and AwaitCommit resolves it to committed or rejected.
//
// LedgerReader: Reads students, documents and endorsements. Reads always go to
// the ledger; nothing is cached between calls.
//
// # Storage Interfaces
//
// StorageBackend: Content-addressed document storage (file, S3, MinIO, IPFS).
// Backends that implement Presigner issue native time-limited URLs.
//
// StorageBackendFactory: Creates storage backends from URI strings and manages
// multi-backend configurations for redundant storage.
//
// OrphanJournal: Records content stored without a matching ledger record.
//
// # Types
//
//   - ContentAddress: CID of document bytes
//   - Student, Document, Endorser: ledger records
//   - Session: wallet context (address and signer) for every write
//   - RegistrationStatus: two-valued ledger flag (uint8 on the wire)
//   - IdentityState: NotRegistered, Registered or LookupFailed
//
// # Errors
//
// Every public operation fails with one of the sentinel errors in errors.go.
// KindOf reduces an error chain to its named ErrorKind.
package interfaces
