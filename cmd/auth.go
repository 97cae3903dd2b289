package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/server"
	"github.com/desertthunder/betterblend/internal/services"
	"github.com/desertthunder/betterblend/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 flow for Spotify and links the account to its listener.
//
// Starts a local HTTP server, opens the browser for user authorization and exchanges the code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}
	if r.linker == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	listener, account, err := r.linkListener(ctx, token, cmd.String("name"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Linked Spotify account %s", listener.SpotifyID)
	r.writePlain("  Listener: %s (%s)\n", listener.Name(), listener.ID())
	if missing := account.MissingScopes(services.RequiredScopes); len(missing) > 0 {
		r.writePlain("⚠ Missing scopes: %s\n", strings.Join(missing, ", "))
	}
	r.writePlain("\nYou can now use: betterblend session create --as %s\n", listener.SpotifyID)

	return nil
}

// linkListener registers the token's Spotify profile as a listener and stores the token as its account.
func (r *Runner) linkListener(ctx context.Context, token *oauth2.Token, name string) (*models.Listener, *models.Account, error) {
	profile, err := r.linker.UserProfile(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load Spotify profile: %w", err)
	}

	if name = strings.TrimSpace(name); name == "" {
		name = profile.DisplayName
	}

	listener := models.NewListener(0, profile.ID, name, profile.Email)
	if err := r.listeners.Upsert(ctx, listener); err != nil {
		return nil, nil, fmt.Errorf("failed to save listener: %w", err)
	}

	account, err := r.linker.LinkAccount(ctx, listener.ID(), token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save account: %w", err)
	}

	r.logger.Info("linked account", "listener", listener.ID(), "spotify_id", listener.SpotifyID)
	return listener, account, nil
}

// doOAuth executes the OAuth2 authorization flow with a local callback server
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(r.linker, state)
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv, err := server.NewCallbackServer(addr, handler, r.logger)
	if err != nil {
		return nil, err
	}
	srv.Start()
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := r.linker.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// AuthStatus lists registered listeners with the state of their linked accounts.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireDB(); err != nil {
		return err
	}

	listeners, err := r.listeners.List(ctx, nil)
	if err != nil {
		return err
	}
	if len(listeners) == 0 {
		return r.writePlain("No linked accounts. Run `betterblend auth login` to add one.\n")
	}

	r.writePlainHeader("Linked accounts")
	for _, l := range listeners {
		r.writePlain("%s (%s)\n", l.Name(), l.SpotifyID)

		account, err := r.accounts.Get(ctx, l.ID())
		if errors.Is(err, shared.ErrNotAuthenticated) {
			r.writePlain("  ✗ Not authenticated\n")
			continue
		} else if err != nil {
			return err
		}

		switch {
		case account.Expiry.IsZero():
			r.writePlain("  ✓ Authenticated\n")
		case account.Expiry.Before(time.Now()):
			r.writePlain("  ✓ Authenticated (access token expired %s, will refresh)\n", account.Expiry.Format(time.RFC3339))
		default:
			r.writePlain("  ✓ Authenticated (access token valid until %s)\n", account.Expiry.Format(time.RFC3339))
		}
		if missing := account.MissingScopes(services.RequiredScopes); len(missing) > 0 {
			r.writePlain("  ⚠ Missing scopes: %s\n", strings.Join(missing, ", "))
		}
	}

	return nil
}
