// Package ui implements the interactive Cook Mode terminal interface
// using bubbletea's Elm architecture.
//
// The TUI renders one cook session across three views:
//  1. [CookView] : current step, checklist, timer dock, suggestion bar
//  2. [IngredientsView] : the scaled ingredient list
//  3. [ConfirmEndView] : confirm completing or abandoning the session
//
// The [Model] implements bubbletea's Init/Update/View pattern. Canonical
// snapshots flow in from the sync layer's update channel; a ticker message
// re-derives timer countdowns from the snapshot and the wall clock, so the
// display never drifts from canonical state.
//
// Keyboard navigation uses vim-style bindings (j/k, n/p, space, enter, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
