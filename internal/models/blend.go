package models

import "time"

const (
	MinBlendRatio = 0.3
	MaxBlendRatio = 0.7
)

// BlendConfig is a session's blend configuration.
//
// Ratio is the creator's share of the playlist, the partner receives the remainder.
type BlendConfig struct {
	Ratio  float64 `json:"ratio"`
	Window Window  `json:"window"`
	Length int     `json:"length"`
}

// DefaultBlendConfig returns an even split over the medium window with 50 tracks.
func DefaultBlendConfig() BlendConfig {
	return BlendConfig{Ratio: 0.5, Window: WindowMedium, Length: 50}
}

// SharedArtist is an artist present in both catalogs, ranked by AveragePopularity.
type SharedArtist struct {
	Artist
	AveragePopularity float64 `json:"average_popularity"`
}

// InsightKind identifies which insight rule fired.
type InsightKind string

const (
	InsightEnergyCreator    InsightKind = "energy_creator"
	InsightEnergyPartner    InsightKind = "energy_partner"
	InsightEnergySimilar    InsightKind = "energy_similar"
	InsightValenceCreator   InsightKind = "valence_creator"
	InsightValencePartner   InsightKind = "valence_partner"
	InsightDanceable        InsightKind = "danceable"
	InsightAcoustic         InsightKind = "acoustic"
	InsightInsufficientData InsightKind = "insufficient_data"
)

// Insight is a human readable observation about the pair's listening profiles.
type Insight struct {
	Kind InsightKind `json:"kind"`
	Text string      `json:"text"`
}

// BlendResult is the compatibility data derived from two snapshots of the same window.
//
// A nil feature profile means that listener had no tracks with audio features.
type BlendResult struct {
	Score           int             `json:"compatibility_score"`
	SharedArtists   []SharedArtist  `json:"shared_artists"`
	CreatorFeatures *FeatureProfile `json:"creator_features"`
	PartnerFeatures *FeatureProfile `json:"partner_features"`
	Insights        []Insight       `json:"insights"`
	SharedTracks    []Track         `json:"shared_tracks"`
	Window          Window          `json:"window"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// BlendPlaylist is an ordered blended track sequence together with the configuration that produced it.
type BlendPlaylist struct {
	Tracks []Track     `json:"tracks"`
	Config BlendConfig `json:"config"`
}

// TrackURIs returns the provider URIs for the playlist's tracks.
func (p BlendPlaylist) TrackURIs() []string {
	uris := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		uris = append(uris, "spotify:track:"+t.ID)
	}
	return uris
}

// PublishedPlaylist identifies a playlist created on a listener's account.
type PublishedPlaylist struct {
	ListenerID string `json:"listener_id"`
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// Publication records the outcome of playlist generation for a session.
type Publication struct {
	Playlist    BlendPlaylist     `json:"playlist"`
	Creator     PublishedPlaylist `json:"creator"`
	Partner     PublishedPlaylist `json:"partner"`
	GeneratedAt time.Time         `json:"generated_at"`
}
