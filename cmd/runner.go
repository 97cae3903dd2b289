package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/repositories"
	"github.com/desertthunder/betterblend/internal/services"
	"github.com/desertthunder/betterblend/internal/shared"
	"github.com/desertthunder/betterblend/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AccountLinker runs the provider side of `auth login`. Implemented by services.SpotifyService.
type AccountLinker interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserProfile(ctx context.Context, token *oauth2.Token) (*services.SpotifyUser, error)
	LinkAccount(ctx context.Context, listenerID string, token *oauth2.Token) (*models.Account, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	listeners  *repositories.ListenerRepository
	accounts   *repositories.AccountRepository
	sessions   *repositories.SessionRepository
	engine     tasks.BlendEngine
	deps       tasks.Deps
	linker     AccountLinker
	connected  bool
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// When DB is set the repositories and the coordinator are wired from it, using Fetcher and
// Publisher for provider calls.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB
	Fetcher    services.CatalogFetcher
	Publisher  services.PlaylistPublisher
	Linker     AccountLinker
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.attach(opts)

	return r
}

// attach wires the repositories and the coordinator to opts.DB.
func (r *Runner) attach(opts RunnerOpts) {
	if opts.Config != nil {
		r.config = opts.Config
	}
	if opts.Linker != nil {
		r.linker = opts.Linker
	}
	if opts.DB == nil {
		return
	}

	r.db = opts.DB
	r.connected = opts.Fetcher != nil && opts.Publisher != nil
	r.listeners = repositories.NewListenerRepository(opts.DB)
	r.accounts = repositories.NewAccountRepository(opts.DB)
	r.sessions = repositories.NewSessionRepository(opts.DB)
	r.deps = tasks.Deps{
		Sessions:  r.sessions,
		Listeners: r.listeners,
		Snapshots: repositories.NewSnapshotRepository(opts.DB),
		Fetcher:   opts.Fetcher,
		Publisher: opts.Publisher,
		Config:    r.config.Blend,
		Logger:    r.logger,
		Now:       opts.Now,
	}
	r.engine = tasks.NewCoordinator(r.deps)
}

// SetLogger swaps the logger, e.g. to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if r.engine != nil {
		r.deps.Logger = logger
		r.engine = tasks.NewCoordinator(r.deps)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, listenersCommand, sessionCommand, blendCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireDB fails with setup guidance when no database is attached.
func (r *Runner) requireDB() error {
	if r.engine == nil {
		return fmt.Errorf("%w: database not initialized, run `betterblend setup`", shared.ErrInvalidConfig)
	}
	return nil
}

// requireProvider fails when no Spotify client could be built from the credentials.
func (r *Runner) requireProvider() error {
	if err := r.requireDB(); err != nil {
		return err
	}
	if !r.connected {
		return fmt.Errorf("%w: set credentials.spotify in %s", shared.ErrMissingCredentials, r.configPath)
	}
	return nil
}

// resolveListener finds a listener by Spotify id, then display name, then internal id.
func (r *Runner) resolveListener(ctx context.Context, ref string) (*models.Listener, error) {
	if err := r.requireDB(); err != nil {
		return nil, err
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: --as is required", shared.ErrMissingArgument)
	}

	if l, err := r.listeners.GetBySpotifyID(ctx, ref); err == nil {
		return l, nil
	}

	byName, err := r.listeners.List(ctx, map[string]any{"display_name": ref})
	if err != nil {
		return nil, err
	}
	switch len(byName) {
	case 0:
	case 1:
		return byName[0], nil
	default:
		return nil, fmt.Errorf("%w: %d listeners are named %q, use the Spotify id", shared.ErrInvalidArgument, len(byName), ref)
	}

	return r.listeners.Get(ctx, ref)
}

// progressPrinter prints progress updates until the channel closes, then signals done.
func (r *Runner) progressPrinter(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.writePlain("  [%s] %s\n", update.Phase, update.Message)
	}
	close(done)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
