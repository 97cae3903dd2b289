package testing

import (
	"fmt"

	"github.com/desertthunder/betterblend/internal/models"
)

// Tracks returns n tracks with ids prefix0..prefixN-1 and popularity descending from 100.
func Tracks(prefix string, n int) []models.Track {
	tracks := make([]models.Track, 0, n)
	for i := range n {
		id := fmt.Sprintf("%s%d", prefix, i)
		tracks = append(tracks, models.Track{
			ID:         id,
			Name:       "Track " + id,
			Artists:    []models.ArtistRef{{ID: prefix + "-artist", Name: "Artist " + prefix}},
			Album:      models.AlbumRef{ID: prefix + "-album", Name: "Album " + prefix},
			URL:        "https://open.spotify.com/track/" + id,
			Popularity: max(100-i, 0),
		})
	}
	return tracks
}

// Artists returns n artists with ids prefix0..prefixN-1 and popularity 50.
func Artists(prefix string, n int) []models.Artist {
	artists := make([]models.Artist, 0, n)
	for i := range n {
		id := fmt.Sprintf("%s%d", prefix, i)
		artists = append(artists, models.Artist{
			ID:         id,
			Name:       "Artist " + id,
			Genres:     []string{"indie"},
			Popularity: 50,
			URL:        "https://open.spotify.com/artist/" + id,
		})
	}
	return artists
}

// Features gives every track the same profile.
func Features(tracks []models.Track, profile models.FeatureProfile) map[string]models.AudioFeatures {
	features := make(map[string]models.AudioFeatures, len(tracks))
	for _, t := range tracks {
		features[t.ID] = models.AudioFeatures{TrackID: t.ID, FeatureProfile: profile, Tempo: 120}
	}
	return features
}
