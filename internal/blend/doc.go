// Package blend implements the compatibility engine and playlist blender.
//
// Everything here is a pure function over [models.CatalogSnapshot] values: no I/O, no shared state,
// and the same inputs always produce the same output. Callers may invoke them concurrently.
//
// # Compatibility
//
// [Analyze] derives a [models.BlendResult] from two snapshots of the same window:
//   - Score: round(J*70 + min(shared, 10)*3) where J is the Jaccard similarity of the artist id sets
//   - Shared artists ranked by the mean of both sides' popularity, capped at [MaxSharedArtists]
//   - Averaged feature profiles, nil for a listener with no feature-bearing tracks
//   - Insights evaluated in a fixed rule order
//   - Shared tracks in partner order, capped at [MaxSharedTracks]
//
// # Blending
//
// [Blend] dedupes each side (last occurrence wins), attributes overlapping tracks to the partner,
// picks the most popular tracks per side according to the ratio and interleaves them creator first.
// A side that runs short is not backfilled from the other, so playlists may be shorter than requested.
//
// # Rounding
//
// Both the score and the creator's track count round half up: 20.5 becomes 21 and 12.5 becomes 13.
package blend
