// Spotify API implementation of [CatalogFetcher] and [PlaylistPublisher]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	topItemsLimit       = 50
	audioFeaturesBatch  = 100
	playlistTracksBatch = 100

	// tokens are renewed this long before the provider expires them
	refreshLeeway = 5 * time.Minute
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	Popularity   int             `json:"popularity"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist. Simplified artists on tracks omit genres, images and popularity.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Popularity   int            `json:"popularity"`
	ExternalURLs externalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyAudioFeatures is one entry of the audio-features endpoint.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
}

// SpotifyPlaylist represents a created playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

func (t SpotifyTrack) toModel() models.Track {
	track := models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Artists:    make([]models.ArtistRef, 0, len(t.Artists)),
		Album:      models.AlbumRef{ID: t.Album.ID, Name: t.Album.Name, ImageURL: firstImage(t.Album.Images)},
		URL:        t.ExternalURLs.Spotify,
		Popularity: t.Popularity,
	}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, models.ArtistRef{ID: a.ID, Name: a.Name})
	}
	return track
}

func (a SpotifyArtist) toModel() models.Artist {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return models.Artist{
		ID:         a.ID,
		Name:       a.Name,
		ImageURL:   firstImage(a.Images),
		Genres:     genres,
		Popularity: a.Popularity,
		URL:        a.ExternalURLs.Spotify,
	}
}

func (f SpotifyAudioFeatures) toModel() models.AudioFeatures {
	return models.AudioFeatures{
		TrackID: f.ID,
		FeatureProfile: models.FeatureProfile{
			Danceability:     f.Danceability,
			Energy:           f.Energy,
			Valence:          f.Valence,
			Acousticness:     f.Acousticness,
			Instrumentalness: f.Instrumentalness,
			Liveness:         f.Liveness,
			Speechiness:      f.Speechiness,
		},
		Tempo: f.Tempo,
	}
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// SpotifyService implements [CatalogFetcher] and [PlaylistPublisher] against the Spotify Web API.
// Uses [oauth2] for authentication, with one refreshing token source per listener.
type SpotifyService struct {
	config            *oauth2.Config
	baseURL           string
	httpClient        *http.Client
	accounts          AccountStore
	limiter           *rate.Limiter
	breaker           *gobreaker.CircuitBreaker[[]byte]
	breakerFailures   uint32
	breakerTimeout    time.Duration
	defaultRetryAfter time.Duration
	logger            *log.Logger

	mu      sync.Mutex
	sources map[string]*listenerSource
}

var (
	_ CatalogFetcher    = (*SpotifyService)(nil)
	_ PlaylistPublisher = (*SpotifyService)(nil)
)

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at a different API root.
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) {
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithEndpoint overrides the OAuth authorize and token URLs.
func WithEndpoint(endpoint oauth2.Endpoint) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint = endpoint
	}
}

// WithHTTPClient sets the client used for API calls and token refreshes.
func WithHTTPClient(client *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithAccountStore sets where listener credentials are loaded from and refreshed tokens saved to.
func WithAccountStore(store AccountStore) SpotifyOption {
	return func(s *SpotifyService) {
		s.accounts = store
	}
}

// WithRateLimit paces requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithCircuitBreaker opens the breaker after failures consecutive transient failures
// and probes again after timeout.
func WithCircuitBreaker(failures uint32, timeout time.Duration) SpotifyOption {
	return func(s *SpotifyService) {
		if failures > 0 {
			s.breakerFailures = failures
		}
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
	}
}

// WithDefaultRetryAfter is reported on 429 responses without a usable Retry-After header.
func WithDefaultRetryAfter(d time.Duration) SpotifyOption {
	return func(s *SpotifyService) {
		if d > 0 {
			s.defaultRetryAfter = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) SpotifyOption {
	return func(s *SpotifyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       RequiredScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:            config,
		baseURL:           spotifyBaseURL,
		httpClient:        http.DefaultClient,
		limiter:           rate.NewLimiter(5, 5),
		breakerFailures:   5,
		breakerTimeout:    30 * time.Second,
		defaultRetryAfter: 60 * time.Second,
		logger:            log.Default(),
		sources:           make(map[string]*listenerSource),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.breaker = newBreaker("spotify-api", s.breakerFailures, s.breakerTimeout, s.logger)
	return s, nil
}

// NewSpotifyServiceFromConfig builds a [SpotifyService] from the application configuration.
func NewSpotifyServiceFromConfig(cfg *shared.Config, store AccountStore, logger *log.Logger) (*SpotifyService, error) {
	api := cfg.Spotify
	return NewSpotifyService(cfg.Credentials.Spotify.Map(),
		WithBaseURL(api.BaseURL),
		WithHTTPClient(&http.Client{Timeout: time.Duration(api.TimeoutSeconds) * time.Second}),
		WithAccountStore(store),
		WithRateLimit(api.RequestsPerSecond, api.Burst),
		WithCircuitBreaker(uint32(max(api.BreakerFailures, 0)), time.Duration(api.BreakerTimeoutSeconds)*time.Second),
		WithDefaultRetryAfter(time.Duration(api.DefaultRetryAfterSeconds)*time.Second),
		WithLogger(logger),
	)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// OAuthConfig returns the OAuth2 configuration used for the authorization code flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// UserProfile retrieves the profile of the account token belongs to.
func (s *SpotifyService) UserProfile(ctx context.Context, token *oauth2.Token) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.send(ctx, token, GrantedScopes(token), http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkAccount stores token as the listener's credentials and drops any cached token source.
func (s *SpotifyService) LinkAccount(ctx context.Context, listenerID string, token *oauth2.Token) (*models.Account, error) {
	if s.accounts == nil {
		return nil, fmt.Errorf("%w: no account store configured", shared.ErrInvalidConfig)
	}

	account := &models.Account{
		ListenerID:   listenerID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Expiry:       token.Expiry,
		Scopes:       GrantedScopes(token),
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	if missing := account.MissingScopes(RequiredScopes); len(missing) > 0 {
		s.logger.Warn("linked account is missing scopes", "listener", listenerID, "missing", strings.Join(missing, ","))
	}

	s.forget(listenerID)
	return account, nil
}

// GrantedScopes reads the space separated scope list returned with a token.
func GrantedScopes(token *oauth2.Token) []string {
	if token == nil {
		return nil
	}
	scope, _ := token.Extra("scope").(string)
	return strings.Fields(scope)
}

// TopTracks returns the listener's top tracks for window.
func (s *SpotifyService) TopTracks(ctx context.Context, listenerID string, window models.Window) ([]models.Track, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("%w: window %q", shared.ErrInvalidArgument, window)
	}

	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", window.TimeRange(), topItemsLimit)

	var page struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, listenerID, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, t := range page.Items {
		if t.ID == "" {
			continue
		}
		tracks = append(tracks, t.toModel())
	}
	return tracks, nil
}

// TopArtists returns the listener's top artists for window.
func (s *SpotifyService) TopArtists(ctx context.Context, listenerID string, window models.Window) ([]models.Artist, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("%w: window %q", shared.ErrInvalidArgument, window)
	}

	endpoint := fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d", window.TimeRange(), topItemsLimit)

	var page struct {
		Items []SpotifyArtist `json:"items"`
	}
	if err := s.doRequest(ctx, listenerID, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(page.Items))
	for _, a := range page.Items {
		if a.ID == "" {
			continue
		}
		artists = append(artists, a.toModel())
	}
	return artists, nil
}

// AudioFeatures fetches feature vectors in batches of 100 ids.
// Null entries, which Spotify returns for tracks without analysis, are skipped.
func (s *SpotifyService) AudioFeatures(ctx context.Context, listenerID string, trackIDs []string) (map[string]models.AudioFeatures, error) {
	ids := uniqueIDs(trackIDs)
	features := make(map[string]models.AudioFeatures, len(ids))

	for start := 0; start < len(ids); start += audioFeaturesBatch {
		end := min(start+audioFeaturesBatch, len(ids))
		endpoint := "/audio-features?ids=" + url.QueryEscape(strings.Join(ids[start:end], ","))

		var response struct {
			AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
		}
		if err := s.doRequest(ctx, listenerID, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, f := range response.AudioFeatures {
			if f == nil || f.ID == "" {
				continue
			}
			features[f.ID] = f.toModel()
		}
	}

	return features, nil
}

// PublishPlaylist creates a public playlist on the listener's account and adds trackURIs in batches of 100.
func (s *SpotifyService) PublishPlaylist(ctx context.Context, listener *models.Listener, name, description string, trackURIs []string) (*models.PublishedPlaylist, error) {
	if listener == nil || listener.SpotifyID == "" {
		return nil, fmt.Errorf("%w: listener has no spotify account", shared.ErrInvalidArgument)
	}

	endpoint := "/users/" + url.PathEscape(listener.SpotifyID) + "/playlists"
	body := createPlaylistRequest{Name: name, Description: description, Public: true}

	var created SpotifyPlaylist
	if err := s.doRequest(ctx, listener.ID(), http.MethodPost, endpoint, body, &created); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	for start := 0; start < len(trackURIs); start += playlistTracksBatch {
		end := min(start+playlistTracksBatch, len(trackURIs))
		batch := addTracksRequest{URIs: trackURIs[start:end]}
		if err := s.doRequest(ctx, listener.ID(), http.MethodPost, "/playlists/"+created.ID+"/tracks", batch, nil); err != nil {
			return nil, fmt.Errorf("failed to add tracks to playlist %s: %w", created.ID, err)
		}
	}

	s.logger.Info("published playlist", "listener", listener.ID(), "playlist", created.ID, "tracks", len(trackURIs))

	return &models.PublishedPlaylist{
		ListenerID: listener.ID(),
		ExternalID: created.ID,
		URL:        created.ExternalURLs.Spotify,
	}, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
