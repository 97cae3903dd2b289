// package services defines the provider ports used by the blend coordinator
// and implements them for the Spotify Web API.
package services

import (
	"context"

	"github.com/desertthunder/betterblend/internal/models"
)

// RequiredScopes are the OAuth scopes a linked account must grant.
var RequiredScopes = []string{
	"user-read-email",
	"user-top-read",
	"playlist-modify-public",
	"playlist-modify-private",
	"playlist-read-private",
}

// CatalogFetcher reads a listener's ranked listening history from a streaming provider.
type CatalogFetcher interface {
	// TopTracks returns the listener's top tracks for window in rank order.
	TopTracks(ctx context.Context, listenerID string, window models.Window) ([]models.Track, error)

	// TopArtists returns the listener's top artists for window in rank order.
	TopArtists(ctx context.Context, listenerID string, window models.Window) ([]models.Artist, error)

	// AudioFeatures returns feature vectors keyed by track id.
	// Tracks the provider has no vector for are absent from the map.
	AudioFeatures(ctx context.Context, listenerID string, trackIDs []string) (map[string]models.AudioFeatures, error)
}

// PlaylistPublisher creates playlists on a listener's account.
type PlaylistPublisher interface {
	// PublishPlaylist creates a public playlist named name and fills it with trackURIs in order.
	PublishPlaylist(ctx context.Context, listener *models.Listener, name, description string, trackURIs []string) (*models.PublishedPlaylist, error)
}

// AccountStore persists OAuth credentials per listener.
//
// [repositories.AccountRepository] is the production implementation.
type AccountStore interface {
	Get(ctx context.Context, listenerID string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
}
