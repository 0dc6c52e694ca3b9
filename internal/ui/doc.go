// Package ui implements an interactive terminal gallery using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [GalleryView] : in-flight job placeholders followed by persisted items, loaded page by page
//  2. [ComposeView] : prompt input for new jobs and re-edits of the highlighted item
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Job progress flows through a channel from the [tasks.Engine]; a poll tick drives status polling and the stale sweep.
//
// Two pieces of state live beside the engine:
//   - [Selection] : the bulk-mode selection set, keyed by item identity
//   - [DragChannel] : the single active drag payload and its cursor-following preview
//
// Keyboard navigation uses vim-style bindings (j/k, J/K to extend a selection, space, enter, esc, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
