// Package tasks coordinates blend sessions between two listeners with real-time progress reporting.
//
// # Session Lifecycle
//
// A session moves through PENDING → ACTIVE → GENERATED, or to EXPIRED when nobody
// joins before its expiry:
//
//  1. [Coordinator.CreateSession] : opens a session with a six character join code
//  2. [Coordinator.JoinSession] : the second listener joins by code
//  3. [Coordinator.UpdateConfig] : either participant adjusts ratio, window or length
//
// # Core Operations
//
//  1. [Coordinator.FetchSessionData] : fetches both catalogs for the active window
//     - Top tracks and top artists run in parallel per listener
//     - Audio features follow once the track ids are known
//     - Both snapshots are written in one transaction after both fetches succeed
//
//  2. [Coordinator.CalculateInsights] : scores the pair and stores the result on the session
//
//  3. [Coordinator.GeneratePlaylist] : blends the catalogs and publishes to both accounts
//     - Requires a stored result for the active window
//     - The session becomes GENERATED and accepts no further work
//
// Every operation takes the acting listener explicitly. Only the two participants
// may read or change a session.
//
// # Progress Reporting
//
// Long-running operations accept an optional channel of [ProgressUpdate]. Sends use
// select with default so a slow reader never blocks the coordinator.
//
// # Implementation
//
// [Coordinator] depends on:
//   - [SessionStore], [ListenerStore], [SnapshotStore] : persistence (repositories package)
//   - [services.CatalogFetcher] : top tracks, artists and audio features
//   - [services.PlaylistPublisher] : playlist creation on each listener's account
package tasks
