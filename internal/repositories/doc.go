// Package repositories implements SQLite persistence for locally cached prompt state.
//
// Each repository handles CRUD operations with atomic sequence generation for stable ordering.
// Saved prompts are soft-deleted via deleted_at timestamps and excluded from queries by default;
// chat history is append-only.
//
// Key Implementations:
//   - [PromptRepository] : Saved prompts under a per-user namespace, unique by text
//   - [HistoryRepository] : Chat session turns under a per-user namespace
//
// Sequence numbers give write order independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
