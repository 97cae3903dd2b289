package blend

import (
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
)

const (
	MaxSharedArtists = 10
	MaxSharedTracks  = 10

	similarityWeight  = 70.0
	sharedArtistPoint = 30.0 / MaxSharedArtists
)

// Analyze computes the full [models.BlendResult] for a creator and partner snapshot.
//
// Both snapshots must carry tracks and artists, otherwise the error wraps [shared.ErrInsufficientData].
// Missing audio features never fail: they yield a nil profile and a single "not enough data" insight.
func Analyze(creator, partner *models.CatalogSnapshot) (*models.BlendResult, error) {
	if err := checkSnapshot("creator", creator); err != nil {
		return nil, err
	}
	if err := checkSnapshot("partner", partner); err != nil {
		return nil, err
	}

	sharedArtists := SharedArtists(creator.Artists, partner.Artists)
	creatorProfile := AverageFeatures(creator.Tracks, creator.Features)
	partnerProfile := AverageFeatures(partner.Tracks, partner.Features)

	return &models.BlendResult{
		Score:           Score(Jaccard(creator.Artists, partner.Artists), len(sharedArtists)),
		SharedArtists:   sharedArtists,
		CreatorFeatures: creatorProfile,
		PartnerFeatures: partnerProfile,
		Insights:        Insights(creatorProfile, partnerProfile),
		SharedTracks:    SharedTracks(creator.Tracks, partner.Tracks),
		Window:          creator.Window,
		ComputedAt:      time.Now().UTC(),
	}, nil
}

func checkSnapshot(side string, s *models.CatalogSnapshot) error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: no %s catalog", shared.ErrInsufficientData, side)
	case len(s.Artists) == 0:
		return fmt.Errorf("%w: %s has no top artists", shared.ErrInsufficientData, side)
	case len(s.Tracks) == 0:
		return fmt.Errorf("%w: %s has no top tracks", shared.ErrInsufficientData, side)
	}
	return nil
}

// Jaccard returns |A∩B| / |A∪B| over artist ids, or 0 when both lists are empty.
func Jaccard(a, b []models.Artist) float64 {
	setA := artistIDs(a)
	setB := artistIDs(b)

	intersection := 0
	for id := range setA {
		if setB[id] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Score combines artist similarity and the shared artist count into a value in [0, 100].
//
// Equivalent to round(j*100*0.7 + min(n,10)/10*30), evaluated with fewer floating point steps.
func Score(j float64, sharedCount int) int {
	n := clamp(sharedCount, 0, MaxSharedArtists)
	return clamp(roundHalfUp(j*similarityWeight+float64(n)*sharedArtistPoint), 0, 100)
}

// SharedArtists returns the artists present in both lists, most popular first, capped at [MaxSharedArtists].
//
// Popularity is the mean of both sides' values. Ties keep the creator's rank order.
func SharedArtists(creator, partner []models.Artist) []models.SharedArtist {
	partnerPopularity := make(map[string]int, len(partner))
	for _, a := range partner {
		if _, ok := partnerPopularity[a.ID]; !ok {
			partnerPopularity[a.ID] = a.Popularity
		}
	}

	seen := make(map[string]bool, len(creator))
	result := []models.SharedArtist{}
	for _, a := range creator {
		pop, ok := partnerPopularity[a.ID]
		if !ok || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		result = append(result, models.SharedArtist{
			Artist:            a,
			AveragePopularity: float64(a.Popularity+pop) / 2,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AveragePopularity > result[j].AveragePopularity
	})

	if len(result) > MaxSharedArtists {
		result = result[:MaxSharedArtists]
	}
	return result
}

// SharedTracks returns the partner's tracks that also appear in the creator's list, in partner order,
// capped at [MaxSharedTracks].
func SharedTracks(creator, partner []models.Track) []models.Track {
	creatorIDs := make(map[string]bool, len(creator))
	for _, t := range creator {
		creatorIDs[t.ID] = true
	}

	result := []models.Track{}
	for _, t := range partner {
		if len(result) == MaxSharedTracks {
			break
		}
		if creatorIDs[t.ID] {
			result = append(result, t)
		}
	}
	return result
}

// AverageFeatures averages each attribute over the tracks that have a feature vector.
//
// Tracks without a vector are skipped rather than counted as zero; a repeated track id counts once.
// Returns nil when no track has a vector.
func AverageFeatures(tracks []models.Track, features map[string]models.AudioFeatures) *models.FeatureProfile {
	var (
		sum   models.FeatureProfile
		count int
		seen  = make(map[string]bool, len(tracks))
	)

	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		f, ok := features[t.ID]
		if !ok {
			continue
		}
		sum.Danceability += f.Danceability
		sum.Energy += f.Energy
		sum.Valence += f.Valence
		sum.Acousticness += f.Acousticness
		sum.Instrumentalness += f.Instrumentalness
		sum.Liveness += f.Liveness
		sum.Speechiness += f.Speechiness
		count++
	}

	if count == 0 {
		return nil
	}

	n := float64(count)
	return &models.FeatureProfile{
		Danceability:     sum.Danceability / n,
		Energy:           sum.Energy / n,
		Valence:          sum.Valence / n,
		Acousticness:     sum.Acousticness / n,
		Instrumentalness: sum.Instrumentalness / n,
		Liveness:         sum.Liveness / n,
		Speechiness:      sum.Speechiness / n,
	}
}

func artistIDs(artists []models.Artist) map[string]bool {
	ids := make(map[string]bool, len(artists))
	for _, a := range artists {
		ids[a.ID] = true
	}
	return ids
}
