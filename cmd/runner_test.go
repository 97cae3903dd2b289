package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/repositories"
	"github.com/desertthunder/betterblend/internal/services"
	"github.com/desertthunder/betterblend/internal/shared"
	tu "github.com/desertthunder/betterblend/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

type fixture struct {
	runner    *Runner
	output    *bytes.Buffer
	catalog   *tu.MockCatalog
	publisher *tu.MockPublisher
	listeners *repositories.ListenerRepository
	accounts  *repositories.AccountRepository
	sessions  *repositories.SessionRepository
	alice     *models.Listener
	bob       *models.Listener
}

func setupRunner(t *testing.T) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		output:    &bytes.Buffer{},
		catalog:   tu.NewMockCatalog(),
		publisher: tu.NewMockPublisher(),
		listeners: repositories.NewListenerRepository(db),
		accounts:  repositories.NewAccountRepository(db),
		sessions:  repositories.NewSessionRepository(db),
	}

	for _, p := range []struct {
		dst  **models.Listener
		id   string
		name string
	}{
		{&f.alice, "alice", "Alice"},
		{&f.bob, "bob", "Bob"},
	} {
		l := models.NewListener(0, p.id, p.name, p.id+"@example.com")
		if err := f.listeners.Create(context.Background(), l); err != nil {
			t.Fatalf("failed to create listener: %v", err)
		}
		*p.dst = l
	}

	f.runner = NewRunner(RunnerOpts{
		Config:     shared.DefaultConfig(),
		ConfigPath: "config.toml",
		DB:         db,
		Fetcher:    f.catalog,
		Publisher:  f.publisher,
		Logger:     log.New(io.Discard),
		Output:     f.output,
	})
	return f
}

// run executes args against a fresh command tree bound to the fixture's runner.
func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "betterblend", Commands: f.runner.register()}
	return app.Run(context.Background(), append([]string{"betterblend"}, args...))
}

func (f *fixture) seedCatalogs() {
	aliceTracks := tu.Tracks("c", 30)
	bobTracks := tu.Tracks("p", 30)
	f.catalog.Set(f.alice.ID(), tu.Catalog{
		Tracks:   aliceTracks,
		Artists:  tu.Artists("a", 10),
		Features: tu.Features(aliceTracks, models.FeatureProfile{Energy: 0.8, Danceability: 0.5, Valence: 0.5}),
	})
	f.catalog.Set(f.bob.ID(), tu.Catalog{
		Tracks:   bobTracks,
		Artists:  tu.Artists("a", 10),
		Features: tu.Features(bobTracks, models.FeatureProfile{Energy: 0.75, Danceability: 0.5, Valence: 0.5}),
	})
}

// activeSession creates a session as alice, joins it as bob and returns its code.
func (f *fixture) activeSession(t *testing.T) string {
	t.Helper()

	if err := f.run(t, "session", "create", "--as", "alice"); err != nil {
		t.Fatalf("session create failed: %v", err)
	}
	sessions, err := f.sessions.List(context.Background(), map[string]any{"participant": f.alice.ID()})
	if err != nil || len(sessions) == 0 {
		t.Fatalf("expected a stored session, got %d (%v)", len(sessions), err)
	}
	code := sessions[0].Code

	if err := f.run(t, "session", "join", "--as", "bob", "--code", strings.ToLower(code)); err != nil {
		t.Fatalf("session join failed: %v", err)
	}
	return code
}

type fakeLinker struct {
	profile  *services.SpotifyUser
	accounts *repositories.AccountRepository
}

func (l *fakeLinker) GetAuthURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func (l *fakeLinker) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "tok-" + code}, nil
}

func (l *fakeLinker) UserProfile(ctx context.Context, token *oauth2.Token) (*services.SpotifyUser, error) {
	if l.profile == nil {
		return nil, shared.ErrUpstreamAuth
	}
	return l.profile, nil
}

func (l *fakeLinker) LinkAccount(ctx context.Context, listenerID string, token *oauth2.Token) (*models.Account, error) {
	account := &models.Account{
		ListenerID:  listenerID,
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		Scopes:      services.GrantedScopes(token),
	}
	return account, l.accounts.Save(ctx, account)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.engine != nil {
				t.Error("expected no engine without a database")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with database wires repositories and engine", func(t *testing.T) {
			f := setupRunner(t)

			if f.runner.engine == nil || f.runner.listeners == nil || f.runner.sessions == nil {
				t.Fatal("expected engine and repositories to be wired")
			}
			if !f.runner.connected {
				t.Error("expected runner to be connected with fetcher and publisher")
			}
		})

		t.Run("SetLogger rebuilds the engine", func(t *testing.T) {
			f := setupRunner(t)
			before := f.runner.engine
			logger := log.New(io.Discard)

			f.runner.SetLogger(logger)

			if f.runner.logger != logger || f.runner.deps.Logger != logger {
				t.Error("expected logger to be replaced")
			}
			if f.runner.engine == before {
				t.Error("expected a new engine")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, 0, &bytes.Buffer{})})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make([]string, 0, len(commands))
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		if got := strings.Join(names, ","); got != "setup,auth,listeners,session,blend" {
			t.Errorf("unexpected commands %s", got)
		}
	})
}

func TestRunner_ResolveListener(t *testing.T) {
	f := setupRunner(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr error
	}{
		{name: "by spotify id", ref: "alice", want: "alice"},
		{name: "by display name", ref: "Bob", want: "bob"},
		{name: "by internal id", ref: f.alice.ID(), want: "alice"},
		{name: "trims whitespace", ref: "  bob ", want: "bob"},
		{name: "unknown", ref: "mallory", wantErr: shared.ErrListenerNotFound},
		{name: "empty", ref: " ", wantErr: shared.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listener, err := f.runner.resolveListener(ctx, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if listener.SpotifyID != tt.want {
				t.Errorf("expected %s, got %s", tt.want, listener.SpotifyID)
			}
		})
	}

	t.Run("ambiguous display name", func(t *testing.T) {
		twin := models.NewListener(0, "alice-2", "Alice", "")
		if err := f.listeners.Create(ctx, twin); err != nil {
			t.Fatalf("failed to create listener: %v", err)
		}

		_, err := f.runner.resolveListener(ctx, "Alice")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("without database", func(t *testing.T) {
		_, err := NewRunner(RunnerOpts{}).resolveListener(ctx, "alice")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"insufficient data", fmt.Errorf("load: %w", shared.ErrInsufficientData), "blend fetch"},
		{"not scored", shared.ErrNotScored, "blend score"},
		{"upstream auth", fmt.Errorf("%w: token revoked", shared.ErrUpstreamAuth), "auth login"},
		{"permission", &shared.PermissionError{Missing: []string{"playlist-modify-private"}}, "auth login"},
		{"rate limited", &shared.RateLimitError{RetryAfter: 1500 * time.Millisecond}, "retry in 2 seconds"},
		{"missing credentials", shared.ErrMissingCredentials, "credentials"},
		{"other", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guidance(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("expected no guidance, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected guidance containing %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCommands_Session(t *testing.T) {
	t.Run("create and join", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)

		out := f.output.String()
		if !strings.Contains(out, "Join code: "+code) {
			t.Errorf("expected join code in output, got %s", out)
		}
		if !strings.Contains(out, "Joined session "+code) {
			t.Errorf("expected join confirmation, got %s", out)
		}

		stored, err := f.sessions.GetByCode(context.Background(), code)
		if err != nil {
			t.Fatalf("failed to load session: %v", err)
		}
		if stored.Status != models.SessionActive || stored.PartnerID != f.bob.ID() {
			t.Errorf("expected active session with bob, got %s/%s", stored.Status, stored.PartnerID)
		}
	})

	t.Run("join own session fails", func(t *testing.T) {
		f := setupRunner(t)
		if err := f.run(t, "session", "create", "--as", "alice"); err != nil {
			t.Fatalf("session create failed: %v", err)
		}
		sessions, _ := f.sessions.List(context.Background(), nil)

		err := f.run(t, "session", "join", "--as", "alice", "--code", sessions[0].Code)
		if !errors.Is(err, shared.ErrOwnSession) {
			t.Errorf("expected ErrOwnSession, got %v", err)
		}
	})

	t.Run("missing --as flag", func(t *testing.T) {
		f := setupRunner(t)
		if err := f.run(t, "session", "create"); err == nil {
			t.Error("expected error for missing required flag")
		}
	})

	t.Run("config updates only set flags", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)
		f.output.Reset()

		if err := f.run(t, "session", "config", "--as", "bob", "--id", code, "--ratio", "0.6", "--length", "30"); err != nil {
			t.Fatalf("session config failed: %v", err)
		}

		stored, _ := f.sessions.GetByCode(context.Background(), code)
		if stored.Config.Ratio != 0.6 || stored.Config.Length != 30 || stored.Config.Window != models.WindowMedium {
			t.Errorf("unexpected config %+v", stored.Config)
		}
		if !strings.Contains(f.output.String(), "60% creator / 40% partner") {
			t.Errorf("expected ratio in output, got %s", f.output.String())
		}
	})

	t.Run("config rejects out of range ratio", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)

		err := f.run(t, "session", "config", "--as", "alice", "--id", code, "--ratio", "0.9")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("list and show", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)
		f.output.Reset()

		if err := f.run(t, "session", "list", "--as", "bob"); err != nil {
			t.Fatalf("session list failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "Found 1 sessions") || !strings.Contains(out, "partner") {
			t.Errorf("unexpected list output %s", out)
		}

		f.output.Reset()
		if err := f.run(t, "session", "show", "--as", "alice", "--id", code, "--json"); err != nil {
			t.Fatalf("session show failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, `"code":"`+code+`"`) || !strings.Contains(out, `"status":"ACTIVE"`) {
			t.Errorf("unexpected show output %s", out)
		}
	})

	t.Run("show denies outsiders", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)
		eve := models.NewListener(0, "eve", "Eve", "")
		if err := f.listeners.Create(context.Background(), eve); err != nil {
			t.Fatalf("failed to create listener: %v", err)
		}

		err := f.run(t, "session", "show", "--as", "eve", "--id", code)
		if !errors.Is(err, shared.ErrAccessDenied) {
			t.Errorf("expected ErrAccessDenied, got %v", err)
		}
	})
}

func TestCommands_Blend(t *testing.T) {
	t.Run("fetch, score, generate and export", func(t *testing.T) {
		f := setupRunner(t)
		f.seedCatalogs()
		code := f.activeSession(t)

		if err := f.run(t, "session", "config", "--as", "alice", "--id", code, "--ratio", "0.6", "--length", "30"); err != nil {
			t.Fatalf("session config failed: %v", err)
		}

		f.output.Reset()
		if err := f.run(t, "blend", "fetch", "--as", "alice", "--id", code); err != nil {
			t.Fatalf("blend fetch failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "30 tracks, 10 artists, 30 with audio features") {
			t.Errorf("unexpected fetch output %s", out)
		}

		f.output.Reset()
		if err := f.run(t, "blend", "score", "--as", "bob", "--id", code); err != nil {
			t.Fatalf("blend score failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "Compatibility: ") || !strings.Contains(out, "Shared artists (10)") {
			t.Errorf("unexpected score output %s", out)
		}

		f.output.Reset()
		if err := f.run(t, "blend", "generate", "--as", "alice", "--id", code); err != nil {
			t.Fatalf("blend generate failed: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, "Published 30 tracks") {
			t.Errorf("unexpected generate output %s", out)
		}
		if !strings.Contains(out, "https://open.spotify.com/playlist/pl-bob") {
			t.Errorf("expected partner playlist url, got %s", out)
		}
		if len(f.publisher.Calls) != 2 {
			t.Errorf("expected 2 publish calls, got %d", len(f.publisher.Calls))
		}

		base := filepath.Join(t.TempDir(), "blend")
		f.output.Reset()
		if err := f.run(t, "blend", "export", "--as", "bob", "--id", code, "--format", "csv", "-o", base); err != nil {
			t.Fatalf("blend export failed: %v", err)
		}
		tu.AssertFileExists(t, base+"_tracks.csv")
		tu.AssertFileExists(t, base+"_summary.json")

		csv := tu.MustReadFile(t, base+"_tracks.csv")
		if lines := strings.Count(strings.TrimSpace(csv), "\n"); lines != 30 {
			t.Errorf("expected header and 30 rows, got %d newlines", lines)
		}
		if !strings.Contains(f.output.String(), "Exported Alice + Bob") {
			t.Errorf("unexpected export output %s", f.output.String())
		}

		err := f.run(t, "blend", "generate", "--as", "alice", "--id", code)
		if !errors.Is(err, shared.ErrSessionGenerated) {
			t.Errorf("expected ErrSessionGenerated on second generate, got %v", err)
		}
	})

	t.Run("score before fetch", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)

		err := f.run(t, "blend", "score", "--as", "alice", "--id", code)
		if !errors.Is(err, shared.ErrInsufficientData) {
			t.Errorf("expected ErrInsufficientData, got %v", err)
		}
		if !strings.Contains(guidance(err), "blend fetch") {
			t.Errorf("expected fetch guidance, got %q", guidance(err))
		}
	})

	t.Run("generate before score", func(t *testing.T) {
		f := setupRunner(t)
		f.seedCatalogs()
		code := f.activeSession(t)

		if err := f.run(t, "blend", "fetch", "--as", "alice", "--id", code); err != nil {
			t.Fatalf("blend fetch failed: %v", err)
		}

		err := f.run(t, "blend", "generate", "--as", "alice", "--id", code)
		if !errors.Is(err, shared.ErrNotScored) {
			t.Errorf("expected ErrNotScored, got %v", err)
		}
	})

	t.Run("fetch surfaces upstream auth errors", func(t *testing.T) {
		f := setupRunner(t)
		f.seedCatalogs()
		f.catalog.TracksErr[f.bob.ID()] = fmt.Errorf("%w: token revoked", shared.ErrUpstreamAuth)
		code := f.activeSession(t)

		err := f.run(t, "blend", "fetch", "--as", "alice", "--id", code)
		if !errors.Is(err, shared.ErrUpstreamAuth) {
			t.Errorf("expected ErrUpstreamAuth, got %v", err)
		}
	})

	t.Run("fetch without provider", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)
		f.runner.connected = false

		err := f.run(t, "blend", "fetch", "--as", "alice", "--id", code)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		f := setupRunner(t)
		code := f.activeSession(t)

		err := f.run(t, "blend", "export", "--as", "alice", "--id", code, "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("markdown export of a pending session", func(t *testing.T) {
		f := setupRunner(t)
		if err := f.run(t, "session", "create", "--as", "alice"); err != nil {
			t.Fatalf("session create failed: %v", err)
		}
		sessions, _ := f.sessions.List(context.Background(), nil)
		dir := filepath.Join(t.TempDir(), "md")

		if err := f.run(t, "blend", "export", "--as", "alice", "--id", sessions[0].ID(), "-o", dir); err != nil {
			t.Fatalf("blend export failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "README.md"))
	})
}

func TestCommands_Auth(t *testing.T) {
	t.Run("linkListener registers and relinks", func(t *testing.T) {
		f := setupRunner(t)
		ctx := context.Background()
		f.runner.linker = &fakeLinker{
			profile:  &services.SpotifyUser{ID: "carol", DisplayName: "Carol C", Email: "carol@example.com"},
			accounts: f.accounts,
		}

		token := (&oauth2.Token{AccessToken: "first"}).WithExtra(map[string]any{"scope": "user-top-read"})
		first, account, err := f.runner.linkListener(ctx, token, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.DisplayName != "Carol C" || account.ListenerID != first.ID() {
			t.Errorf("unexpected listener %s / account %s", first.DisplayName, account.ListenerID)
		}

		second, _, err := f.runner.linkListener(ctx, &oauth2.Token{AccessToken: "second"}, "Caz")
		if err != nil {
			t.Fatalf("expected no error on relink, got %v", err)
		}
		if second.ID() != first.ID() || second.DisplayName != "Caz" {
			t.Errorf("expected same listener renamed, got %s %q", second.ID(), second.DisplayName)
		}

		stored, err := f.accounts.Get(ctx, first.ID())
		if err != nil {
			t.Fatalf("failed to load account: %v", err)
		}
		if stored.AccessToken != "second" {
			t.Errorf("expected relinked token, got %s", stored.AccessToken)
		}
	})

	t.Run("linkListener propagates profile errors", func(t *testing.T) {
		f := setupRunner(t)
		f.runner.linker = &fakeLinker{accounts: f.accounts}

		_, _, err := f.runner.linkListener(context.Background(), &oauth2.Token{AccessToken: "x"}, "")
		if !errors.Is(err, shared.ErrUpstreamAuth) {
			t.Errorf("expected ErrUpstreamAuth, got %v", err)
		}
	})

	t.Run("login without credentials", func(t *testing.T) {
		f := setupRunner(t)

		err := f.run(t, "auth", "login")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("status reports accounts and missing scopes", func(t *testing.T) {
		f := setupRunner(t)
		err := f.accounts.Save(context.Background(), &models.Account{
			ListenerID:  f.alice.ID(),
			AccessToken: "tok",
			TokenType:   "Bearer",
			Expiry:      time.Now().Add(time.Hour),
			Scopes:      []string{"user-top-read"},
		})
		if err != nil {
			t.Fatalf("failed to save account: %v", err)
		}

		if err := f.run(t, "auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "Alice (alice)") || !strings.Contains(out, "valid until") {
			t.Errorf("expected alice to be authenticated, got %s", out)
		}
		if !strings.Contains(out, "Missing scopes: ") {
			t.Errorf("expected missing scopes, got %s", out)
		}
		if !strings.Contains(out, "Bob (bob)\n  ✗ Not authenticated") {
			t.Errorf("expected bob to be unauthenticated, got %s", out)
		}
	})

	t.Run("listeners", func(t *testing.T) {
		f := setupRunner(t)

		if err := f.run(t, "listeners", "--json"); err != nil {
			t.Fatalf("listeners failed: %v", err)
		}
		out := f.output.String()
		if !strings.Contains(out, `"spotify_id":"alice"`) || !strings.Contains(out, `"spotify_id":"bob"`) {
			t.Errorf("unexpected listeners output %s", out)
		}
	})
}

func TestSetup(t *testing.T) {
	f := setupRunner(t)
	f.runner.configPath = filepath.Join(t.TempDir(), "config.toml")

	if err := f.run(t, "setup"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, f.runner.configPath)
	out := f.output.String()
	if !strings.Contains(out, "Created ") || !strings.Contains(out, "✓ 000 create_listeners") {
		t.Errorf("unexpected setup output %s", out)
	}
}

func TestSetup_CredentialsAndRollback(t *testing.T) {
	f := setupRunner(t)
	f.runner.configPath = filepath.Join(t.TempDir(), "config.toml")

	if err := f.run(t, "setup", "--client-id", "cid", "--client-secret", "secret"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	config, err := shared.LoadConfig(f.runner.configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if config.Credentials.Spotify.ClientID != "cid" || config.Credentials.Spotify.ClientSecret != "secret" {
		t.Errorf("expected credentials to be saved, got %+v", config.Credentials.Spotify)
	}

	f.output.Reset()
	if err := f.run(t, "setup", "--rollback"); err != nil {
		t.Fatalf("setup --rollback failed: %v", err)
	}
	out := f.output.String()
	if !strings.Contains(out, "Rolled back") || !strings.Contains(out, "✗ 001 create_sessions") {
		t.Errorf("unexpected rollback output %s", out)
	}
}
