package tasks

import (
	"fmt"

	"github.com/desertthunder/betterblend/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase       // Operation phase
	Role    models.Role // Listener the update concerns, empty for session-wide phases
	Step    int         // Current step number within phase
	Total   int         // Total steps in this phase
	Message string      // Human-readable message for display
	Data    any         // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	FetchArtists
	FetchFeatures
	SaveSnapshots
	Score
	BlendTracks
	Publish
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case FetchArtists:
		return "fetch_artists"
	case FetchFeatures:
		return "fetch_features"
	case SaveSnapshots:
		return "save_snapshots"
	case Score:
		return "score"
	case BlendTracks:
		return "blend_tracks"
	case Publish:
		return "publish"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchedTracksUpdate(role models.Role, window models.Window, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Role:    role,
		Step:    1,
		Total:   3,
		Message: fmt.Sprintf("Fetched %d %s-term tracks for %s", count, window, role),
		Data:    count,
	}
}

func fetchedArtistsUpdate(role models.Role, window models.Window, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Role:    role,
		Step:    2,
		Total:   3,
		Message: fmt.Sprintf("Fetched %d %s-term artists for %s", count, window, role),
		Data:    count,
	}
}

func fetchedFeaturesUpdate(role models.Role, found, requested int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Role:    role,
		Step:    3,
		Total:   3,
		Message: fmt.Sprintf("Fetched audio features for %d of %d tracks for %s", found, requested, role),
		Data:    found,
	}
}

func savingSnapshotsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: SaveSnapshots, Step: 1, Total: 1, Message: "Saving both catalogs..."}
}

func blendedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BlendTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Blended %d tracks", count),
		Data:    count,
	}
}

func publishedUpdate(role models.Role, playlist *models.PublishedPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Publish,
		Role:    role,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Published playlist for %s", role),
		Data:    playlist,
	}
}

func completeUpdate(message string) ProgressUpdate {
	return ProgressUpdate{Phase: Complete, Step: 1, Total: 1, Message: message}
}
