package blend

import (
	"fmt"

	"github.com/desertthunder/betterblend/internal/models"
)

// track builds a track with the given id and popularity.
func track(id string, popularity int) models.Track {
	return models.Track{ID: id, Name: "Track " + id, Popularity: popularity}
}

func artist(id string, popularity int) models.Artist {
	return models.Artist{ID: id, Name: "Artist " + id, Popularity: popularity}
}

// artists builds n artists with ids prefix0..prefixN-1 and popularity 50.
func artists(prefix string, n int) []models.Artist {
	out := make([]models.Artist, 0, n)
	for i := range n {
		out = append(out, artist(fmt.Sprintf("%s%d", prefix, i), 50))
	}
	return out
}

func tracks(prefix string, n int) []models.Track {
	out := make([]models.Track, 0, n)
	for i := range n {
		out = append(out, track(fmt.Sprintf("%s%d", prefix, i), 100-i))
	}
	return out
}

func ids(tracks []models.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func snapshot(listener string, ts []models.Track, as []models.Artist, features ...models.AudioFeatures) *models.CatalogSnapshot {
	fm := make(map[string]models.AudioFeatures, len(features))
	for _, f := range features {
		fm[f.TrackID] = f
	}
	return &models.CatalogSnapshot{
		ListenerID: listener,
		Window:     models.WindowMedium,
		Tracks:     ts,
		Artists:    as,
		Features:   fm,
	}
}
