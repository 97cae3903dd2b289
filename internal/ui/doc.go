// Package ui implements the blend viewer using bubbletea's Elm architecture.
//
// The viewer shows one session's blend across four tabs:
//  1. [OverviewTab] : compatibility score, feature comparison and insights
//  2. [ArtistsTab] : ranked shared artists
//  3. [TracksTab] : tracks in both listeners' top lists
//  4. [PlaylistTab] : the blended playlist
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the [Msg] union type.
// Pressing g on a scored but unpublished session generates the playlist; progress updates flow through a
// channel from the coordinator exactly as they do for the CLI.
//
// Keys: tab/shift+tab switch tabs, up/down (j/k) scroll lists, r reloads, q quits.
package ui
