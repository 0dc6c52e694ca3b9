// Package tasks tracks generation jobs and reconciles them with the remote gallery.
//
// # Core Pieces
//
//  1. [Registry] : in-flight jobs keyed by id
//     - queued → processing → {completed, failed}
//     - missing ids are no-ops, re-adding an id overwrites
//     - [Registry.ExpireStale] fails jobs that stop making progress
//
//  2. [Merge] : pure function over a job snapshot and persisted items
//     - active placeholders first (newest first), then persisted items in fetch order
//     - a placeholder disappears as soon as its identity shows up among persisted items
//     - failed jobs are reported by [FailedJobs], never merged
//
//  3. [Engine] : dispatches jobs to a [services.Producer] and polls them
//     - derivative jobs get a [SyntheticJobID]
//     - producer and network errors become job state and log lines
//
//  4. [Feed] : infinite scroll driver with a single in-flight fetch
//
//  5. [PromptSync] : saved prompts and chat history merged with the backend copy
//
//  6. [BulkDownload] : rate-limited worker pool for selected items
//
// # Progress Reporting
//
// Long-running operations accept a ProgressUpdate channel. Updates use select with default
// so a slow or absent reader never blocks the engine.
package tasks
