package blend

import (
	"math"

	"github.com/desertthunder/betterblend/internal/models"
)

const (
	energyGap     = 0.2
	valenceGap    = 0.2
	danceTogether = 0.1
	acousticFloor = 0.5
)

var insightText = map[models.InsightKind]string{
	models.InsightEnergyCreator:    "You're the energetic one!",
	models.InsightEnergyPartner:    "Your partner brings the energy!",
	models.InsightEnergySimilar:    "You both have similar energy levels",
	models.InsightValenceCreator:   "You prefer happier, more upbeat music",
	models.InsightValencePartner:   "Your partner loves the upbeat vibes",
	models.InsightDanceable:        "You're both dance floor ready!",
	models.InsightAcoustic:         "You both appreciate acoustic vibes",
	models.InsightInsufficientData: "Not enough data to generate insights",
}

func insight(kind models.InsightKind) models.Insight {
	return models.Insight{Kind: kind, Text: insightText[kind]}
}

// Insights evaluates the personality rules in order: energy, valence, danceability, acousticness.
//
// Text is written from the creator's point of view. If either profile is nil the result is a single
// [models.InsightInsufficientData] entry. Otherwise it holds between one and four insights.
func Insights(creator, partner *models.FeatureProfile) []models.Insight {
	if creator == nil || partner == nil {
		return []models.Insight{insight(models.InsightInsufficientData)}
	}

	var out []models.Insight

	if math.Abs(creator.Energy-partner.Energy) > energyGap {
		if creator.Energy > partner.Energy {
			out = append(out, insight(models.InsightEnergyCreator))
		} else {
			out = append(out, insight(models.InsightEnergyPartner))
		}
	} else {
		out = append(out, insight(models.InsightEnergySimilar))
	}

	if math.Abs(creator.Valence-partner.Valence) > valenceGap {
		if creator.Valence > partner.Valence {
			out = append(out, insight(models.InsightValenceCreator))
		} else {
			out = append(out, insight(models.InsightValencePartner))
		}
	}

	if math.Abs(creator.Danceability-partner.Danceability) < danceTogether {
		out = append(out, insight(models.InsightDanceable))
	}

	if creator.Acousticness > acousticFloor && partner.Acousticness > acousticFloor {
		out = append(out, insight(models.InsightAcoustic))
	}

	return out
}
