package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/services"
	"github.com/desertthunder/betterblend/internal/shared"
)

const (
	codeLength   = 6
	codeAttempts = 5
)

// SessionStore persists blend sessions. Implemented by repositories.SessionRepository.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	GetByCode(ctx context.Context, code string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	List(ctx context.Context, criteria map[string]any) ([]*models.Session, error)
}

// ListenerStore looks up listeners. Implemented by repositories.ListenerRepository.
type ListenerStore interface {
	Get(ctx context.Context, id string) (*models.Listener, error)
}

// SnapshotStore persists catalog snapshots. Implemented by repositories.SnapshotRepository.
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, sessionID string, snapshots ...models.CatalogSnapshot) error
	LoadSnapshot(ctx context.Context, sessionID, listenerID string, window models.Window) (*models.CatalogSnapshot, error)
}

// BlendEngine defines the session operations exposed to the CLI and UI layers.
type BlendEngine interface {
	CreateSession(ctx context.Context, listenerID string) (*models.Session, error)
	JoinSession(ctx context.Context, listenerID, code string) (*models.Session, error)
	GetSession(ctx context.Context, listenerID, ref string) (*models.Session, error)
	ListSessions(ctx context.Context, listenerID string) ([]*models.Session, error)
	UpdateConfig(ctx context.Context, listenerID, ref string, update ConfigUpdate) (*models.Session, error)

	// FetchSessionData stores fresh catalogs for both listeners.
	FetchSessionData(ctx context.Context, listenerID, ref string, progress chan<- ProgressUpdate) (*FetchResult, error)

	// CalculateInsights scores the fetched catalogs.
	CalculateInsights(ctx context.Context, listenerID, ref string) (*models.BlendResult, error)

	// GeneratePlaylist blends and publishes the playlist to both accounts.
	GeneratePlaylist(ctx context.Context, listenerID, ref string, progress chan<- ProgressUpdate) (*models.Publication, error)
}

var _ BlendEngine = (*Coordinator)(nil)

// Deps are the collaborators of a [Coordinator].
type Deps struct {
	Sessions  SessionStore
	Listeners ListenerStore
	Snapshots SnapshotStore
	Fetcher   services.CatalogFetcher
	Publisher services.PlaylistPublisher
	Config    shared.BlendConfig
	Logger    *log.Logger
	Now       func() time.Time // defaults to time.Now
}

// Coordinator runs blend sessions: lifecycle, fetch, score and generate.
type Coordinator struct {
	sessions  SessionStore
	listeners ListenerStore
	snapshots SnapshotStore
	fetcher   services.CatalogFetcher
	publisher services.PlaylistPublisher
	config    shared.BlendConfig
	logger    *log.Logger
	now       func() time.Time
}

// NewCoordinator creates a [Coordinator] from deps.
func NewCoordinator(deps Deps) *Coordinator {
	c := &Coordinator{
		sessions:  deps.Sessions,
		listeners: deps.Listeners,
		snapshots: deps.Snapshots,
		fetcher:   deps.Fetcher,
		publisher: deps.Publisher,
		config:    deps.Config,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.config.MinLength <= 0 || c.config.MaxLength < c.config.MinLength {
		c.config = shared.DefaultConfig().Blend
	}
	return c
}

// ConfigUpdate is a partial blend configuration change. Nil fields are left unchanged.
type ConfigUpdate struct {
	Ratio  *float64
	Window *string
	Length *int
}

// Empty reports whether the update changes nothing.
func (u ConfigUpdate) Empty() bool {
	return u.Ratio == nil && u.Window == nil && u.Length == nil
}

// defaultBlendConfig builds a session's starting configuration from the configured defaults.
func (c *Coordinator) defaultBlendConfig() models.BlendConfig {
	cfg := models.DefaultBlendConfig()
	if r := c.config.DefaultRatio; r >= models.MinBlendRatio && r <= models.MaxBlendRatio {
		cfg.Ratio = r
	}
	if w, err := models.ParseWindow(c.config.DefaultWindow); err == nil {
		cfg.Window = w
	}
	if l := c.config.DefaultLength; l >= c.config.MinLength && l <= c.config.MaxLength {
		cfg.Length = l
	}
	return cfg
}

// CreateSession opens a pending session owned by listenerID with a fresh join code.
func (c *Coordinator) CreateSession(ctx context.Context, listenerID string) (*models.Session, error) {
	if _, err := c.listeners.Get(ctx, listenerID); err != nil {
		return nil, err
	}

	ttl := c.config.SessionTTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	for range codeAttempts {
		code, err := shared.GenerateCode(codeLength)
		if err != nil {
			return nil, err
		}

		if _, err := c.sessions.GetByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, shared.ErrSessionNotFound) {
			return nil, err
		}

		session := models.NewSession(0, code, listenerID, c.defaultBlendConfig(), c.now().Add(ttl))
		if err := c.sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		c.logger.Info("session created", "session", session.ID(), "code", code, "creator", listenerID)
		return session, nil
	}

	return nil, fmt.Errorf("failed to allocate a unique session code after %d attempts", codeAttempts)
}

// JoinSession makes listenerID the partner of the pending session with the given code.
//
// Joining a session the listener already partners is a no-op.
func (c *Coordinator) JoinSession(ctx context.Context, listenerID, code string) (*models.Session, error) {
	if _, err := c.listeners.Get(ctx, listenerID); err != nil {
		return nil, err
	}

	session, err := c.sessions.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}

	if expired, err := c.expire(ctx, session); err != nil {
		return nil, err
	} else if expired {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionExpired, session.Code)
	}

	switch {
	case session.CreatorID == listenerID:
		return nil, shared.ErrOwnSession
	case session.PartnerID == listenerID:
		return session, nil
	case session.HasPartner():
		return nil, shared.ErrSessionFull
	case session.Status != models.SessionPending:
		return nil, fmt.Errorf("%w: session is %s", shared.ErrSessionFull, session.Status)
	}

	session.PartnerID = listenerID
	session.Status = models.SessionActive
	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	c.logger.Info("session joined", "session", session.ID(), "partner", listenerID)
	return session, nil
}

// GetSession returns a session the listener participates in. ref is a session id or join code.
func (c *Coordinator) GetSession(ctx context.Context, listenerID, ref string) (*models.Session, error) {
	session, err := c.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(listenerID) {
		return nil, shared.ErrAccessDenied
	}
	if _, err := c.expire(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the sessions listenerID created or joined, newest first.
func (c *Coordinator) ListSessions(ctx context.Context, listenerID string) ([]*models.Session, error) {
	sessions, err := c.sessions.List(ctx, map[string]any{"participant": listenerID})
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if _, err := c.expire(ctx, s); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// UpdateConfig applies a partial configuration change. Last write wins.
func (c *Coordinator) UpdateConfig(ctx context.Context, listenerID, ref string, update ConfigUpdate) (*models.Session, error) {
	session, err := c.GetSession(ctx, listenerID, ref)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case models.SessionGenerated:
		return nil, shared.ErrSessionGenerated
	case models.SessionExpired:
		return nil, shared.ErrSessionExpired
	}

	cfg := session.Config
	if update.Ratio != nil {
		r := *update.Ratio
		if r < models.MinBlendRatio || r > models.MaxBlendRatio {
			return nil, fmt.Errorf("%w: ratio %.2f outside [%.1f, %.1f]", shared.ErrInvalidArgument, r, models.MinBlendRatio, models.MaxBlendRatio)
		}
		cfg.Ratio = r
	}
	if update.Window != nil {
		w, err := models.ParseWindow(*update.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		cfg.Window = w
	}
	if update.Length != nil {
		l := *update.Length
		if l < c.config.MinLength || l > c.config.MaxLength {
			return nil, fmt.Errorf("%w: length %d outside [%d, %d]", shared.ErrInvalidArgument, l, c.config.MinLength, c.config.MaxLength)
		}
		cfg.Length = l
	}

	session.Config = cfg
	if err := c.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session config: %w", err)
	}

	c.logger.Info("session config updated", "session", session.ID(), "ratio", cfg.Ratio, "window", cfg.Window, "length", cfg.Length)
	return session, nil
}

// lookup resolves ref as a session id, then as a join code.
func (c *Coordinator) lookup(ctx context.Context, ref string) (*models.Session, error) {
	session, err := c.sessions.Get(ctx, ref)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, shared.ErrSessionNotFound) {
		return nil, err
	}
	return c.sessions.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(ref)))
}

// expire flips a session past its expiry to EXPIRED and persists the change.
// Generated sessions never expire.
func (c *Coordinator) expire(ctx context.Context, session *models.Session) (bool, error) {
	switch session.Status {
	case models.SessionExpired:
		return true, nil
	case models.SessionGenerated:
		return false, nil
	}
	if !c.now().After(session.ExpiresAt) {
		return false, nil
	}

	session.Status = models.SessionExpired
	if err := c.sessions.Update(ctx, session); err != nil {
		return true, fmt.Errorf("failed to expire session: %w", err)
	}
	c.logger.Info("session expired", "session", session.ID())
	return true, nil
}

// workable loads a session the listener may fetch, score or generate for.
func (c *Coordinator) workable(ctx context.Context, listenerID, ref string) (*models.Session, error) {
	session, err := c.GetSession(ctx, listenerID, ref)
	if err != nil {
		return nil, err
	}

	switch {
	case session.Status == models.SessionGenerated:
		return nil, shared.ErrSessionGenerated
	case session.Status == models.SessionExpired:
		return nil, shared.ErrSessionExpired
	case !session.HasPartner():
		return nil, shared.ErrPartnerMissing
	}
	return session, nil
}

// participants returns the creator and partner listeners of session.
func (c *Coordinator) participants(ctx context.Context, session *models.Session) (*models.Listener, *models.Listener, error) {
	creator, err := c.listeners.Get(ctx, session.CreatorID)
	if err != nil {
		return nil, nil, err
	}
	partner, err := c.listeners.Get(ctx, session.PartnerID)
	if err != nil {
		return nil, nil, err
	}
	return creator, partner, nil
}
