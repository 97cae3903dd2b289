package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/betterblend/internal/blend"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
	"golang.org/x/sync/errgroup"
)

const playlistDescription = "Created with BetterBlend"

// CalculateInsights scores the session's active window and stores the result on the session.
//
// Every call recomputes from the stored snapshots.
func (c *Coordinator) CalculateInsights(ctx context.Context, listenerID, ref string) (*models.BlendResult, error) {
	session, err := c.workable(ctx, listenerID, ref)
	if err != nil {
		return nil, err
	}

	creator, partner, err := c.loadSnapshots(ctx, session)
	if err != nil {
		return nil, err
	}

	result, err := blend.Analyze(creator, partner)
	if err != nil {
		return nil, err
	}
	result.ComputedAt = c.now()

	session.Result = result
	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store blend result: %w", err)
	}

	c.logger.Info("compatibility calculated", "session", session.ID(), "window", result.Window, "score", result.Score,
		"shared_artists", len(result.SharedArtists), "shared_tracks", len(result.SharedTracks))
	return result, nil
}

// GeneratePlaylist blends the session's catalogs and publishes the playlist to both listeners' accounts.
//
// It requires a stored result for the active window. On success the session becomes GENERATED.
func (c *Coordinator) GeneratePlaylist(ctx context.Context, listenerID, ref string, progress chan<- ProgressUpdate) (*models.Publication, error) {
	session, err := c.workable(ctx, listenerID, ref)
	if err != nil {
		return nil, err
	}

	if session.Result == nil || session.Result.Window != session.Config.Window {
		return nil, shared.ErrNotScored
	}

	creatorSnap, partnerSnap, err := c.loadSnapshots(ctx, session)
	if err != nil {
		return nil, err
	}

	creator, partner, err := c.participants(ctx, session)
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(c.logger, "session", session.ID())

	playlist := blend.Generate(creatorSnap, partnerSnap, session.Config)
	sendProgress(progress, blendedUpdate(len(playlist.Tracks)))
	logger.Info("playlist blended", "tracks", len(playlist.Tracks), "ratio", session.Config.Ratio, "length", session.Config.Length)

	publication := &models.Publication{Playlist: playlist}
	uris := playlist.TrackURIs()

	g, gctx := errgroup.WithContext(ctx)
	publish := func(role models.Role, owner, other *models.Listener, dst *models.PublishedPlaylist) {
		g.Go(func() error {
			name := "Blend with " + other.Name()
			published, err := c.publisher.PublishPlaylist(gctx, owner, name, playlistDescription, uris)
			if err != nil {
				return fmt.Errorf("failed to publish %s playlist: %w", role, err)
			}
			*dst = *published
			sendProgress(progress, publishedUpdate(role, published))
			return nil
		})
	}
	publish(models.RoleCreator, creator, partner, &publication.Creator)
	publish(models.RolePartner, partner, creator, &publication.Partner)

	if err := g.Wait(); err != nil {
		logger.Warn("playlist publish failed", "error", err)
		return nil, err
	}

	publication.GeneratedAt = c.now()
	session.Publication = publication
	session.Status = models.SessionGenerated
	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store publication: %w", err)
	}

	logger.Info("session generated", "creator_playlist", publication.Creator.ExternalID, "partner_playlist", publication.Partner.ExternalID)
	sendProgress(progress, completeUpdate(fmt.Sprintf("Published %d tracks to both accounts", len(playlist.Tracks))))

	return publication, nil
}

// Snapshots returns both stored catalogs for the session's active window.
func (c *Coordinator) Snapshots(ctx context.Context, listenerID, ref string) (*models.CatalogSnapshot, *models.CatalogSnapshot, error) {
	session, err := c.GetSession(ctx, listenerID, ref)
	if err != nil {
		return nil, nil, err
	}
	if !session.HasPartner() {
		return nil, nil, shared.ErrPartnerMissing
	}
	return c.loadSnapshots(ctx, session)
}

// loadSnapshots loads both catalogs for the active window, requiring tracks and artists on each side.
func (c *Coordinator) loadSnapshots(ctx context.Context, session *models.Session) (*models.CatalogSnapshot, *models.CatalogSnapshot, error) {
	window := session.Config.Window

	creator, err := c.snapshots.LoadSnapshot(ctx, session.ID(), session.CreatorID, window)
	if err != nil {
		return nil, nil, err
	}
	partner, err := c.snapshots.LoadSnapshot(ctx, session.ID(), session.PartnerID, window)
	if err != nil {
		return nil, nil, err
	}

	if !creator.Ready() || !partner.Ready() {
		return nil, nil, fmt.Errorf("%w: %s-term catalog is empty", shared.ErrInsufficientData, window)
	}
	return creator, partner, nil
}
