// Package services defines the provider ports used by the blend coordinator and implements them for Spotify.
//
// # Ports
//
// [CatalogFetcher] reads a listener's top tracks, top artists and audio features for a time window.
// [PlaylistPublisher] creates a playlist on a listener's account. The coordinator only depends on these
// interfaces so tests swap in fakes from internal/testing.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// Each listener gets a token source built from the credentials in an [AccountStore];
// refreshed tokens are written back to the store.
//
// Every request passes through a [rate.Limiter] and a circuit breaker. The breaker only counts
// transient failures: authentication, permission and rate limit responses are answers, not outages.
//
// # Error Handling
//
// Responses are classified into typed errors from the shared package:
//   - 401, missing account or failed refresh : [shared.ErrUpstreamAuth]
//   - 403 : [shared.PermissionError] listing the scopes the stored account lacks
//   - 429 : [shared.RateLimitError] with the Retry-After hint (default from config)
//   - anything else : [shared.UpstreamError]
//
// # API Mappings
//
// Spotify JSON is decoded into [SpotifyTrack], [SpotifyArtist] and [SpotifyAudioFeatures]
// then mapped onto [models.Track], [models.Artist] and [models.AudioFeatures].
package services
