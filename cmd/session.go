package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Listeners prints every registered listener.
func (r *Runner) Listeners(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	listeners, err := r.listeners.List(ctx, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(listeners, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d listeners:\n\n", len(listeners))
	for i, l := range listeners {
		r.writePlain("%d. %s\n", i+1, l.Name())
		r.writePlain("   Spotify ID: %s\n", l.SpotifyID)
		r.writePlain("   ID: %s\n", l.ID())
	}
	return nil
}

// SessionCreate opens a session owned by the --as listener.
func (r *Runner) SessionCreate(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	session, err := r.engine.CreateSession(ctx, listener.ID())
	if err != nil {
		return err
	}

	r.writePlain("✓ Session created\n")
	r.writePlain("  Join code: %s\n", session.Code)
	r.writePlain("  ID: %s\n", session.ID())
	r.writePlain("  Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	r.writePlain("\nShare the code with your partner: betterblend session join --as <them> --code %s\n", session.Code)
	return nil
}

// SessionJoin makes the --as listener the partner of the session with --code.
func (r *Runner) SessionJoin(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	session, err := r.engine.JoinSession(ctx, listener.ID(), cmd.String("code"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Joined session %s\n", session.Code)
	r.writePlain("  ID: %s\n", session.ID())
	r.writePlain("\nNext: betterblend blend fetch --as %s --id %s\n", listener.SpotifyID, session.Code)
	return nil
}

// SessionShow prints one session.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	session, err := r.engine.GetSession(ctx, listener.ID(), cmd.String("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(session, cmd.Bool("pretty"))
	}

	r.printSession(ctx, session)
	return nil
}

// SessionList prints the sessions the --as listener takes part in.
func (r *Runner) SessionList(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	sessions, err := r.engine.ListSessions(ctx, listener.ID())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(sessions, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d sessions:\n\n", len(sessions))
	for i, s := range sessions {
		role, _ := s.RoleOf(listener.ID())
		r.writePlain("%d. %s  %-9s  %s", i+1, s.Code, s.Status, role)
		if s.Result != nil {
			r.writePlain("  score %d%%", s.Result.Score)
		}
		r.writePlain("\n")
	}
	return nil
}

// SessionConfig applies --ratio, --window and --length to a session.
func (r *Runner) SessionConfig(ctx context.Context, cmd *cli.Command) error {
	listener, err := r.resolveListener(ctx, cmd.String("as"))
	if err != nil {
		return err
	}

	var update tasks.ConfigUpdate
	if cmd.IsSet("ratio") {
		ratio := cmd.Float("ratio")
		update.Ratio = &ratio
	}
	if cmd.IsSet("window") {
		window := cmd.String("window")
		update.Window = &window
	}
	if cmd.IsSet("length") {
		length := cmd.Int("length")
		update.Length = &length
	}

	session, err := r.engine.GetSession(ctx, listener.ID(), cmd.String("id"))
	if err != nil {
		return err
	}
	if !update.Empty() {
		if session, err = r.engine.UpdateConfig(ctx, listener.ID(), session.ID(), update); err != nil {
			return err
		}
		r.writePlain("✓ Configuration updated\n")
	}

	r.printConfig(session.Config)
	return nil
}

func (r *Runner) printConfig(cfg models.BlendConfig) {
	r.writePlain("  Ratio: %d%% creator / %d%% partner\n", percent(cfg.Ratio), 100-percent(cfg.Ratio))
	r.writePlain("  Window: %s (%s)\n", cfg.Window, cfg.Window.TimeRange())
	r.writePlain("  Length: %d tracks\n", cfg.Length)
}

func (r *Runner) printSession(ctx context.Context, s *models.Session) {
	r.writePlainHeader("Session " + s.Code)
	r.writePlain("ID: %s\n", s.ID())
	r.writePlain("Status: %s\n", s.Status)
	r.writePlain("Creator: %s\n", r.listenerName(ctx, s.CreatorID))
	if s.HasPartner() {
		r.writePlain("Partner: %s\n", r.listenerName(ctx, s.PartnerID))
	} else {
		r.writePlain("Partner: (waiting)\n")
	}
	r.writePlain("Expires: %s\n", s.ExpiresAt.Format(time.RFC1123))
	r.writePlainln("Configuration")
	r.printConfig(s.Config)

	if s.Result != nil {
		r.writePlainln("Compatibility: %d%% (%s window)", s.Result.Score, s.Result.Window)
	}
	if p := s.Publication; p != nil {
		r.writePlainln("Published %s", p.GeneratedAt.Format(time.RFC1123))
		r.writePlain("  %s\n  %s\n", p.Creator.URL, p.Partner.URL)
	}
}

func (r *Runner) listenerName(ctx context.Context, id string) string {
	l, err := r.listeners.Get(ctx, id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%s (%s)", l.Name(), l.SpotifyID)
}

func percent(ratio float64) int {
	return int(ratio*100 + 0.5)
}
