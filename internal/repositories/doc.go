// Package repositories implements SQLite persistence for listeners, accounts, blend sessions and catalog snapshots.
//
// Each entity repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Listeners and sessions support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ListenerRepository] : Listener persistence with provider-id lookups and upserts
//   - [AccountRepository] : OAuth credentials and granted scopes per listener
//   - [SessionRepository] : Blend sessions, their configuration, stored result and publication
//   - [SnapshotRepository] : Per-window catalog snapshots and the accumulated audio features
//
// Sequence numbers provide stable, human-readable ordering (e.g., session #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
