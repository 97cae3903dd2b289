package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/betterblend/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file from the template when none exists and reports the migration state of the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	if id, secret := cmd.String("client-id"), cmd.String("client-secret"); id != "" || secret != "" {
		if err := r.saveCredentials(configPath, id, secret); err != nil {
			return err
		}
		r.writePlain("✓ Spotify credentials saved to %s\n", configPath)
	}

	if r.db == nil {
		return r.requireDB()
	}

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(r.db); err != nil {
			return err
		}
		r.writePlain("✓ Rolled back the latest migration\n")
	} else {
		applied, err := shared.RunMigrations(r.db)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if len(applied) > 0 {
			r.logger.Info("applied migrations", "versions", applied)
		}
	}

	states, err := shared.MigrationStatus(r.db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Database: " + r.config.Database.Path)
	for _, s := range states {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("%s %03d %s\n", mark, s.Version, s.Name)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// saveCredentials writes the Spotify client credentials into the config file at path.
func (r *Runner) saveCredentials(path, clientID, clientSecret string) error {
	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}

	if clientID != "" {
		config.Credentials.Spotify.ClientID = clientID
	}
	if clientSecret != "" {
		config.Credentials.Spotify.ClientSecret = clientSecret
	}

	if err := shared.SaveConfig(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Info("saved spotify credentials", "path", path)
	return nil
}
