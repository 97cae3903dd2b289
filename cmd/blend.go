package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/betterblend/internal/formatter"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/tasks"
	"github.com/urfave/cli/v3"
)

// withProgress runs fn with a progress channel whose updates are printed as they arrive.
func (r *Runner) withProgress(fn func(progress chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go r.progressPrinter(progress, done)

	err := fn(progress)
	close(progress)
	<-done
	return err
}

// BlendFetch stores fresh catalogs for both listeners of a session.
func (r *Runner) BlendFetch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireProvider(); err != nil {
		return err
	}
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	r.writePlain("→ Fetching listening data...\n")

	var result *tasks.FetchResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = r.engine.FetchSessionData(ctx, listener.ID(), cmd.String("id"), progress)
		return err
	})
	if err != nil {
		return err
	}

	r.writePlainln("✓ Fetched %s window", result.Window)
	for _, snap := range []models.CatalogSnapshot{result.Creator, result.Partner} {
		r.writePlain("  %s: %d tracks, %d artists, %d with audio features\n",
			r.listenerName(ctx, snap.ListenerID), len(snap.Tracks), len(snap.Artists), len(snap.Features))
	}
	r.writePlain("\nNext: betterblend blend score --as %s --id %s\n", listener.SpotifyID, cmd.String("id"))
	return nil
}

// BlendScore calculates compatibility and insights from the fetched catalogs.
func (r *Runner) BlendScore(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	result, err := r.engine.CalculateInsights(ctx, listener.ID(), cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Compatibility: %d%%", result.Score))
	r.writePlain("Window: %s (%s)\n", result.Window, result.Window.TimeRange())

	if len(result.Insights) > 0 {
		r.writePlainln("Insights")
		for _, in := range result.Insights {
			r.writePlain("  • %s\n", in.Text)
		}
	}

	if len(result.SharedArtists) > 0 {
		r.writePlainln("Shared artists (%d)", len(result.SharedArtists))
		for i, a := range result.SharedArtists {
			if i == 10 {
				r.writePlain("  ... and %d more\n", len(result.SharedArtists)-i)
				break
			}
			r.writePlain("  %d. %s\n", i+1, a.Name)
		}
	}

	if len(result.SharedTracks) > 0 {
		r.writePlainln("Shared tracks (%d)", len(result.SharedTracks))
		for i, t := range result.SharedTracks {
			if i == 10 {
				r.writePlain("  ... and %d more\n", len(result.SharedTracks)-i)
				break
			}
			r.writePlain("  %d. %s - %s\n", i+1, t.Name, t.ArtistNames())
		}
	}

	return nil
}

// BlendGenerate blends the playlist and publishes it to both listeners' accounts.
func (r *Runner) BlendGenerate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireProvider(); err != nil {
		return err
	}
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	r.writePlain("→ Generating playlist...\n")

	var publication *models.Publication
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		publication, err = r.engine.GeneratePlaylist(ctx, listener.ID(), cmd.String("id"), progress)
		return err
	})
	if err != nil {
		return err
	}

	r.writePlainln("✓ Published %d tracks to both accounts", len(publication.Playlist.Tracks))
	r.writePlain("  %s\n", publication.Creator.URL)
	r.writePlain("  %s\n", publication.Partner.URL)
	return nil
}

// loadExport builds an export view of a session the listener takes part in.
func (r *Runner) loadExport(ctx context.Context, listenerID, ref string) (*formatter.BlendExport, error) {
	session, err := r.engine.GetSession(ctx, listenerID, ref)
	if err != nil {
		return nil, err
	}

	creator, err := r.listeners.Get(ctx, session.CreatorID)
	if err != nil {
		return nil, err
	}
	var partner *models.Listener
	if session.HasPartner() {
		if partner, err = r.listeners.Get(ctx, session.PartnerID); err != nil {
			return nil, err
		}
	}

	return formatter.NewBlendExport(session, creator, partner), nil
}

// BlendExport writes the blend in the requested format.
func (r *Runner) BlendExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	export, err := r.loadExport(ctx, listener.ID(), cmd.String("id"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	var files []string

	switch format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(export, output)
		if err != nil {
			return err
		}
		files = []string{res.TracksFile, res.SummaryFile}
	case formatter.FormatMarkdown:
		res, err := formatter.WriteMarkdownExport(export, output, cmd.Bool("download-cover"))
		if err != nil {
			return err
		}
		files = res.Files
	case formatter.FormatText:
		path, err := formatter.WriteTextExport(export, output)
		if err != nil {
			return err
		}
		files = []string{path}
	case formatter.FormatJSON:
		path, err := formatter.WriteJSONExport(export, output)
		if err != nil {
			return err
		}
		files = []string{path}
	}

	r.logger.Info("exported blend", "session", export.SessionID, "format", format, "files", strings.Join(files, ","))
	r.writePlain("✓ Exported %s\n", export.Title())
	for _, f := range files {
		r.writePlain("  %s\n", f)
	}
	return nil
}
