package blend

import (
	"sort"

	"github.com/desertthunder/betterblend/internal/models"
)

// Generate blends the track lists of two snapshots according to cfg.
func Generate(creator, partner *models.CatalogSnapshot, cfg models.BlendConfig) models.BlendPlaylist {
	var creatorTracks, partnerTracks []models.Track
	if creator != nil {
		creatorTracks = creator.Tracks
	}
	if partner != nil {
		partnerTracks = partner.Tracks
	}

	return models.BlendPlaylist{
		Tracks: Blend(creatorTracks, partnerTracks, cfg.Ratio, cfg.Length),
		Config: cfg,
	}
}

// Blend interleaves the most popular tracks of both sides into a playlist of at most length tracks.
//
// The creator receives round(length*ratio) slots and the partner the rest. A track present on both sides
// belongs to the partner. A side with fewer tracks than its slots contributes what it has; the other side
// does not fill the gap. Inputs are not modified. Ratio is not validated here.
func Blend(creator, partner []models.Track, ratio float64, length int) []models.Track {
	if length <= 0 {
		return []models.Track{}
	}

	creatorUnique := dedupe(creator)
	partnerUnique := dedupe(partner)

	partnerIDs := make(map[string]bool, len(partnerUnique))
	for _, t := range partnerUnique {
		partnerIDs[t.ID] = true
	}

	creatorFiltered := make([]models.Track, 0, len(creatorUnique))
	for _, t := range creatorUnique {
		if !partnerIDs[t.ID] {
			creatorFiltered = append(creatorFiltered, t)
		}
	}

	creatorCount := clamp(roundHalfUp(float64(length)*ratio), 0, length)
	partnerCount := length - creatorCount

	creatorSelected := mostPopular(creatorFiltered, creatorCount)
	partnerSelected := mostPopular(partnerUnique, partnerCount)

	blended := make([]models.Track, 0, len(creatorSelected)+len(partnerSelected))
	for i := 0; i < max(len(creatorSelected), len(partnerSelected)); i++ {
		if i < len(creatorSelected) {
			blended = append(blended, creatorSelected[i])
		}
		if i < len(partnerSelected) {
			blended = append(blended, partnerSelected[i])
		}
	}

	if len(blended) > length {
		blended = blended[:length]
	}
	return blended
}

// dedupe keeps one record per id: the last one seen, at the position where the id first appeared.
func dedupe(tracks []models.Track) []models.Track {
	index := make(map[string]int, len(tracks))
	out := make([]models.Track, 0, len(tracks))

	for _, t := range tracks {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

// mostPopular returns up to n tracks sorted by popularity descending. Ties keep input order.
func mostPopular(tracks []models.Track, n int) []models.Track {
	sorted := make([]models.Track, len(tracks))
	copy(sorted, tracks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Popularity > sorted[j].Popularity
	})

	if n < len(sorted) {
		sorted = sorted[:max(n, 0)]
	}
	return sorted
}
