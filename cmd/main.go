package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterblend/internal/repositories"
	"github.com/desertthunder/betterblend/internal/services"
	"github.com/desertthunder/betterblend/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "betterblend",
		Usage:   "Blend two listeners' Spotify tastes into a shared playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   runner.open,
		After:    runner.close,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if hint := guidance(err); hint != "" {
			logger.Error(err.Error())
			logger.Fatal(hint)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// open loads the configuration, migrates the database and builds the Spotify client before any command runs.
//
// A missing config file falls back to defaults so that `setup` can create it.
func (r *Runner) open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	configPath := cmd.String("config")
	r.configPath = configPath

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return ctx, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", configPath)
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return ctx, fmt.Errorf("failed to open database: %w", err)
	}
	if config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	}

	if applied, err := shared.RunMigrations(db); err != nil {
		db.Close()
		return ctx, fmt.Errorf("failed to run migrations: %w", err)
	} else if len(applied) > 0 {
		r.logger.Debug("applied migrations", "versions", applied)
	}

	opts := RunnerOpts{Config: config, DB: db}
	spotify, err := services.NewSpotifyServiceFromConfig(config, repositories.NewAccountRepository(db), r.logger)
	switch {
	case errors.Is(err, shared.ErrMissingCredentials):
		r.logger.Debug("spotify credentials not configured", "error", err)
	case err != nil:
		db.Close()
		return ctx, fmt.Errorf("failed to create Spotify service: %w", err)
	default:
		opts.Fetcher = spotify
		opts.Publisher = spotify
		opts.Linker = spotify
	}

	r.attach(opts)
	return ctx, nil
}

func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// guidance returns the follow-up a user should take for typed errors, or "" for anything else.
func guidance(err error) string {
	var rateLimit *shared.RateLimitError

	switch {
	case errors.As(err, &rateLimit):
		return fmt.Sprintf("Spotify is rate limiting requests, retry in %d seconds", int(math.Ceil(rateLimit.RetryAfter.Seconds())))
	case errors.Is(err, shared.ErrUpstreamRateLimited):
		return "Spotify is rate limiting requests, retry in a minute"
	case errors.Is(err, shared.ErrInsufficientData):
		return "run `betterblend blend fetch` first"
	case errors.Is(err, shared.ErrNotScored):
		return "run `betterblend blend score` first"
	case errors.Is(err, shared.ErrUpstreamAuth), errors.Is(err, shared.ErrUpstreamPermission):
		return "run `betterblend auth login` again to relink the account"
	case errors.Is(err, shared.ErrMissingCredentials):
		return "add your Spotify app credentials to the config file, see `betterblend setup`"
	}
	return ""
}
