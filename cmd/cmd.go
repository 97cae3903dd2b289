// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func asFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "as",
		Usage:    "Listener acting on the session (Spotify id, display name or id)",
		Required: true,
	}
}

func sessionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "Session id or join code",
		Required: true,
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage: "Create the config file, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "Spotify application client id to store in the config file",
			},
			&cli.StringFlag{
				Name:  "client-secret",
				Usage: "Spotify application client secret to store in the config file",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.Setup,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Link Spotify accounts",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize a Spotify account with OAuth2 and register its listener",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name to store for the listener (defaults to the Spotify profile name)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show linked accounts, token expiry and missing scopes",
				Action: r.AuthStatus,
			},
		},
	}
}

func listenersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "listeners",
		Usage:  "List registered listeners",
		Flags:  jsonFlags(),
		Action: r.Listeners,
	}
}

func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"s"},
		Usage:   "Create, join and configure blend sessions",
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Open a session and print its join code",
				Flags:  []cli.Flag{asFlag()},
				Action: r.SessionCreate,
			},
			{
				Name:  "join",
				Usage: "Join a session with its code",
				Flags: []cli.Flag{
					asFlag(),
					&cli.StringFlag{
						Name:     "code",
						Usage:    "Join code shared by the creator",
						Required: true,
					},
				},
				Action: r.SessionJoin,
			},
			{
				Name:   "show",
				Usage:  "Show a session",
				Flags:  append([]cli.Flag{asFlag(), sessionFlag()}, jsonFlags()...),
				Action: r.SessionShow,
			},
			{
				Name:   "list",
				Usage:  "List sessions the listener created or joined",
				Flags:  append([]cli.Flag{asFlag()}, jsonFlags()...),
				Action: r.SessionList,
			},
			{
				Name:  "config",
				Usage: "Change the blend ratio, time window or playlist length",
				Flags: []cli.Flag{
					asFlag(),
					sessionFlag(),
					&cli.FloatFlag{
						Name:  "ratio",
						Usage: "Creator share of the playlist (0.3 - 0.7)",
					},
					&cli.StringFlag{
						Name:  "window",
						Usage: "Listening window: short, medium or long",
					},
					&cli.IntFlag{
						Name:  "length",
						Usage: "Playlist length",
					},
				},
				Action: r.SessionConfig,
			},
		},
	}
}

func blendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "blend",
		Aliases: []string{"b"},
		Usage:   "Fetch listening data, score compatibility and publish playlists",
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Fetch top tracks, artists and audio features for both listeners",
				Flags:  []cli.Flag{asFlag(), sessionFlag()},
				Action: r.BlendFetch,
			},
			{
				Name:   "score",
				Usage:  "Calculate compatibility and insights from fetched data",
				Flags:  append([]cli.Flag{asFlag(), sessionFlag()}, jsonFlags()...),
				Action: r.BlendScore,
			},
			{
				Name:   "generate",
				Usage:  "Blend the playlist and publish it to both accounts",
				Flags:  []cli.Flag{asFlag(), sessionFlag()},
				Action: r.BlendGenerate,
			},
			{
				Name:  "export",
				Usage: "Export the blend to CSV, Markdown, text or JSON",
				Flags: []cli.Flag{
					asFlag(),
					sessionFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, text or json",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (file, base name for csv or directory for markdown)",
					},
					&cli.BoolFlag{
						Name:  "download-cover",
						Usage: "Download album artwork for Markdown exports",
					},
				},
				Action: r.BlendExport,
			},
			{
				Name:   "view",
				Usage:  "Browse the blend in an interactive terminal UI",
				Flags:  []cli.Flag{asFlag(), sessionFlag()},
				Action: r.BlendView,
			},
		},
	}
}
