package models

import (
	"fmt"
	"strings"
	"time"
)

// Window is a recency bucket over which top tracks and artists are computed upstream.
type Window string

const (
	WindowShort  Window = "short"
	WindowMedium Window = "medium"
	WindowLong   Window = "long"
)

// Windows lists every supported [Window] in order of increasing span.
var Windows = []Window{WindowShort, WindowMedium, WindowLong}

// ParseWindow accepts both the short token ("medium") and the provider's
// time range form ("medium_term").
func ParseWindow(s string) (Window, error) {
	w := Window(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_term"))
	if !w.Valid() {
		return "", fmt.Errorf("unknown window %q (want short, medium or long)", s)
	}
	return w, nil
}

// Valid reports whether w is one of the enumerated windows.
func (w Window) Valid() bool {
	switch w {
	case WindowShort, WindowMedium, WindowLong:
		return true
	}
	return false
}

// TimeRange returns the provider's time_range query value for w.
func (w Window) TimeRange() string {
	return string(w) + "_term"
}

func (w Window) String() string {
	return string(w)
}

// ArtistRef is the artist reference carried on a [Track].
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlbumRef is the album reference carried on a [Track].
type AlbumRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// Track is a ranked top track. Identity across listeners is by ID only.
type Track struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Artists    []ArtistRef `json:"artists"`
	Album      AlbumRef    `json:"album"`
	URL        string      `json:"url"`
	Popularity int         `json:"popularity"`
}

// ArtistNames joins the track's artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Artist is a ranked top artist.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ImageURL   string   `json:"image_url,omitempty"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	URL        string   `json:"url"`
}

// FeatureProfile holds the seven bounded attributes used by the compatibility engine.
// It is both a single track's vector and a listener's averaged profile.
type FeatureProfile struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
}

// AudioFeatures is the feature vector for one track.
//
// Tempo is stored as fetched but takes no part in scoring.
type AudioFeatures struct {
	TrackID string `json:"track_id"`
	FeatureProfile
	Tempo float64 `json:"tempo"`
}

// CatalogSnapshot is one listener's catalog for one [Window].
//
// Tracks and Artists keep fetch order, which is the provider's rank.
// Features covers the listener's tracks across every fetch so far.
type CatalogSnapshot struct {
	ListenerID string                   `json:"listener_id"`
	Window     Window                   `json:"window"`
	Tracks     []Track                  `json:"tracks"`
	Artists    []Artist                 `json:"artists"`
	Features   map[string]AudioFeatures `json:"features"`
	FetchedAt  time.Time                `json:"fetched_at"`
}

// Ready reports whether the snapshot has the track and artist data needed for scoring and blending.
func (c *CatalogSnapshot) Ready() bool {
	return c != nil && len(c.Tracks) > 0 && len(c.Artists) > 0
}

// TrackIDs returns the snapshot's track ids in rank order.
func (c *CatalogSnapshot) TrackIDs() []string {
	ids := make([]string, 0, len(c.Tracks))
	for _, t := range c.Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}
