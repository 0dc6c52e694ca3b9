// Package models defines the domain entities of the genx generation gallery.
//
// The package contains two categories of types:
//
// 1. Gallery values: lightweight structs shared by the engine and the presentation layer
//   - [Item] : A generated image or video, either persisted remotely or produced by a job
//   - [Job] : An in-flight generation request with its progress state machine
//   - [JobPatch] : Partial progress/result update merged into a [Job]
//
// 2. Persistent Entities: SQLite-backed records kept under per-user namespaces
//   - [SavedPrompt] : A prompt the user saved for reuse
//   - [HistoryEntry] : One turn of a chat-style generation session
//
// Items and jobs share a canonical identity computed by [Identity] with precedence
// job id > remote file id > query-stripped url. The identity is what the engine uses for
// dedup and what the selection set stores.
package models
