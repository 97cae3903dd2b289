package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/betterblend/internal/formatter"
	"github.com/desertthunder/betterblend/internal/shared"
	"github.com/desertthunder/betterblend/internal/tasks"
	"github.com/desertthunder/betterblend/internal/ui"
	"github.com/urfave/cli/v3"
)

// BlendView launches the interactive terminal UI for a session.
func (r *Runner) BlendView(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}
	ref := cmd.String("id")

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/betterblend-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	load := func(ctx context.Context) (*formatter.BlendExport, error) {
		return r.loadExport(ctx, listener.ID(), ref)
	}

	var generate ui.Generator
	if r.connected {
		generate = func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error {
			_, err := r.engine.GeneratePlaylist(ctx, listener.ID(), ref, progress)
			return err
		}
	}

	p := tea.NewProgram(ui.NewModel(ctx, load, generate))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
