package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
	"golang.org/x/sync/errgroup"
)

// FetchResult holds the snapshots written by [Coordinator.FetchSessionData].
type FetchResult struct {
	SessionID string
	Window    models.Window
	Creator   models.CatalogSnapshot
	Partner   models.CatalogSnapshot
}

// FetchSessionData fetches both listeners' catalogs for the session's active window.
//
// Both fetches run in parallel and must succeed before anything is written.
// The two snapshots are then stored in a single transaction.
func (c *Coordinator) FetchSessionData(ctx context.Context, listenerID, ref string, progress chan<- ProgressUpdate) (*FetchResult, error) {
	session, err := c.workable(ctx, listenerID, ref)
	if err != nil {
		return nil, err
	}

	window := session.Config.Window
	logger := shared.WithLogger(c.logger, "session", session.ID(), "window", window)
	logger.Info("fetching catalogs")

	result := &FetchResult{SessionID: session.ID(), Window: window}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snapshot, err := c.fetchCatalog(gctx, models.RoleCreator, session.CreatorID, window, progress)
		if err != nil {
			return err
		}
		result.Creator = *snapshot
		return nil
	})
	g.Go(func() error {
		snapshot, err := c.fetchCatalog(gctx, models.RolePartner, session.PartnerID, window, progress)
		if err != nil {
			return err
		}
		result.Partner = *snapshot
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Warn("catalog fetch failed", "error", err)
		return nil, err
	}

	sendProgress(progress, savingSnapshotsUpdate())
	if err := c.snapshots.SaveSnapshots(ctx, session.ID(), result.Creator, result.Partner); err != nil {
		return nil, fmt.Errorf("failed to save snapshots: %w", err)
	}

	logger.Info("catalogs saved",
		"creator_tracks", len(result.Creator.Tracks), "creator_artists", len(result.Creator.Artists),
		"partner_tracks", len(result.Partner.Tracks), "partner_artists", len(result.Partner.Artists))
	sendProgress(progress, completeUpdate(fmt.Sprintf("Fetched %s-term data for both listeners", window)))

	return result, nil
}

// fetchCatalog loads one listener's top tracks and artists in parallel, then the features for those tracks.
func (c *Coordinator) fetchCatalog(ctx context.Context, role models.Role, listenerID string, window models.Window, progress chan<- ProgressUpdate) (*models.CatalogSnapshot, error) {
	snapshot := &models.CatalogSnapshot{ListenerID: listenerID, Window: window}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tracks, err := c.fetcher.TopTracks(gctx, listenerID, window)
		if err != nil {
			return fmt.Errorf("failed to fetch %s top tracks: %w", role, err)
		}
		snapshot.Tracks = tracks
		sendProgress(progress, fetchedTracksUpdate(role, window, len(tracks)))
		return nil
	})
	g.Go(func() error {
		artists, err := c.fetcher.TopArtists(gctx, listenerID, window)
		if err != nil {
			return fmt.Errorf("failed to fetch %s top artists: %w", role, err)
		}
		snapshot.Artists = artists
		sendProgress(progress, fetchedArtistsUpdate(role, window, len(artists)))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := snapshot.TrackIDs()
	features := map[string]models.AudioFeatures{}
	if len(ids) > 0 {
		fetched, err := c.fetcher.AudioFeatures(ctx, listenerID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s audio features: %w", role, err)
		}
		for id, f := range fetched {
			features[id] = f
		}
	}
	snapshot.Features = features
	sendProgress(progress, fetchedFeaturesUpdate(role, len(features), len(ids)))

	snapshot.FetchedAt = c.now()
	return snapshot, nil
}
