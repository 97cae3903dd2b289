package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/betterblend/internal/models"
)

// Catalog is the canned provider data for one listener.
type Catalog struct {
	Tracks   []models.Track
	Artists  []models.Artist
	Features map[string]models.AudioFeatures
}

// MockCatalog is a test double for services.CatalogFetcher keyed by listener id.
//
// Errors set in TracksErr, ArtistsErr or FeaturesErr are returned for the matching listener.
type MockCatalog struct {
	mu          sync.Mutex
	Catalogs    map[string]Catalog
	TracksErr   map[string]error
	ArtistsErr  map[string]error
	FeaturesErr map[string]error
	Calls       []string
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Catalogs:    make(map[string]Catalog),
		TracksErr:   make(map[string]error),
		ArtistsErr:  make(map[string]error),
		FeaturesErr: make(map[string]error),
	}
}

// Set replaces the catalog for listenerID.
func (m *MockCatalog) Set(listenerID string, c Catalog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Catalogs[listenerID] = c
}

func (m *MockCatalog) record(call string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

func (m *MockCatalog) lookup(listenerID string, errs map[string]error) (Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := errs[listenerID]; err != nil {
		return Catalog{}, err
	}
	return m.Catalogs[listenerID], nil
}

func (m *MockCatalog) TopTracks(ctx context.Context, listenerID string, window models.Window) ([]models.Track, error) {
	m.record(fmt.Sprintf("tracks:%s:%s", listenerID, window))
	c, err := m.lookup(listenerID, m.TracksErr)
	if err != nil {
		return nil, err
	}
	return append([]models.Track(nil), c.Tracks...), nil
}

func (m *MockCatalog) TopArtists(ctx context.Context, listenerID string, window models.Window) ([]models.Artist, error) {
	m.record(fmt.Sprintf("artists:%s:%s", listenerID, window))
	c, err := m.lookup(listenerID, m.ArtistsErr)
	if err != nil {
		return nil, err
	}
	return append([]models.Artist(nil), c.Artists...), nil
}

func (m *MockCatalog) AudioFeatures(ctx context.Context, listenerID string, trackIDs []string) (map[string]models.AudioFeatures, error) {
	m.record(fmt.Sprintf("features:%s:%d", listenerID, len(trackIDs)))
	c, err := m.lookup(listenerID, m.FeaturesErr)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.AudioFeatures)
	for _, id := range trackIDs {
		if f, ok := c.Features[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

// Published is one recorded PublishPlaylist call.
type Published struct {
	Listener    *models.Listener
	Name        string
	Description string
	URIs        []string
}

// MockPublisher is a test double for services.PlaylistPublisher.
type MockPublisher struct {
	mu    sync.Mutex
	Err   map[string]error
	Calls []Published
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Err: make(map[string]error)}
}

func (m *MockPublisher) PublishPlaylist(ctx context.Context, listener *models.Listener, name, description string, trackURIs []string) (*models.PublishedPlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, Published{Listener: listener, Name: name, Description: description, URIs: trackURIs})
	if err := m.Err[listener.ID()]; err != nil {
		return nil, err
	}

	return &models.PublishedPlaylist{
		ListenerID: listener.ID(),
		ExternalID: "pl-" + listener.SpotifyID,
		URL:        "https://open.spotify.com/playlist/pl-" + listener.SpotifyID,
	}, nil
}

// ByListener returns the recorded call for listenerID.
func (m *MockPublisher) ByListener(listenerID string) (Published, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Calls {
		if c.Listener.ID() == listenerID {
			return c, true
		}
	}
	return Published{}, false
}
