package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 4 << 20

// listenerSource is a cached token source together with the scopes the account granted.
type listenerSource struct {
	oauth2.TokenSource
	scopes []string
}

// persistingSource writes refreshed tokens back to the account store.
//
// It is always wrapped in [oauth2.ReuseTokenSource], which serializes calls.
type persistingSource struct {
	base       oauth2.TokenSource
	store      AccountStore
	listenerID string
	scopes     []string
	last       string
	logger     *log.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != p.last {
		p.last = token.AccessToken
		account := &models.Account{
			ListenerID:   p.listenerID,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.Type(),
			Expiry:       token.Expiry,
			Scopes:       p.scopes,
		}
		if err := p.store.Save(context.Background(), account); err != nil {
			p.logger.Warn("failed to persist refreshed token", "listener", p.listenerID, "error", err)
		} else {
			p.logger.Debug("refreshed access token", "listener", p.listenerID)
		}
	}

	return token, nil
}

// oauthContext makes oauth2 use the service's HTTP client for token requests.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// tokenSource returns the cached token source for listenerID, building it from the account store on first use.
func (s *SpotifyService) tokenSource(ctx context.Context, listenerID string) (*listenerSource, error) {
	s.mu.Lock()
	src, ok := s.sources[listenerID]
	s.mu.Unlock()
	if ok {
		return src, nil
	}

	if s.accounts == nil {
		return nil, fmt.Errorf("%w: no account store configured", shared.ErrUpstreamAuth)
	}

	account, err := s.accounts.Get(ctx, listenerID)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
	}
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    account.TokenType,
	}
	if !account.Expiry.IsZero() {
		token.Expiry = account.Expiry.Add(-refreshLeeway)
	}

	refresh := s.config.TokenSource(s.oauthContext(context.Background()), token)
	src = &listenerSource{
		TokenSource: oauth2.ReuseTokenSource(token, &persistingSource{
			base:       refresh,
			store:      s.accounts,
			listenerID: listenerID,
			scopes:     account.Scopes,
			last:       account.AccessToken,
			logger:     s.logger,
		}),
		scopes: account.Scopes,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sources[listenerID]; ok {
		return existing, nil
	}
	s.sources[listenerID] = src
	return src, nil
}

func (s *SpotifyService) forget(listenerID string) {
	s.mu.Lock()
	delete(s.sources, listenerID)
	s.mu.Unlock()
}

// doRequest performs an authenticated request on behalf of listenerID.
func (s *SpotifyService) doRequest(ctx context.Context, listenerID, method, endpoint string, body, result any) error {
	src, err := s.tokenSource(ctx, listenerID)
	if err != nil {
		return err
	}

	token, err := src.Token()
	if err != nil {
		s.forget(listenerID)
		var netErr *url.Error
		if errors.As(err, &netErr) {
			return &shared.UpstreamError{Message: "token refresh failed", Err: err}
		}
		return fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
	}

	err = s.send(ctx, token, src.scopes, method, endpoint, body, result)
	if errors.Is(err, shared.ErrUpstreamAuth) {
		s.forget(listenerID)
	}
	return err
}

// send performs one paced request through the circuit breaker and decodes a 2xx body into result.
func (s *SpotifyService) send(ctx context.Context, token *oauth2.Token, scopes []string, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	data, err := s.breaker.Execute(func() ([]byte, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		token.SetAuthHeader(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &shared.UpstreamError{Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, &shared.UpstreamError{Status: resp.StatusCode, Err: err}
		}

		s.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, s.classify(resp, data, scopes)
		}
		return data, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &shared.UpstreamError{Message: "spotify temporarily unavailable", Err: err}
	}
	if err != nil {
		if errors.Is(err, shared.ErrUpstreamPermission) || errors.Is(err, shared.ErrUpstreamRateLimited) {
			s.logger.Warn("spotify request rejected", "endpoint", endpoint, "error", err)
		}
		return err
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return &shared.UpstreamError{Message: "failed to decode response", Err: err}
		}
	}

	return nil
}

// classify maps a non-2xx response onto the upstream error taxonomy.
func (s *SpotifyService) classify(resp *http.Response, body []byte, scopes []string) error {
	message := apiMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if message == "" {
			return shared.ErrUpstreamAuth
		}
		return fmt.Errorf("%w: %s", shared.ErrUpstreamAuth, message)
	case http.StatusForbidden:
		account := models.Account{Scopes: scopes}
		return &shared.PermissionError{Missing: account.MissingScopes(RequiredScopes), Message: message}
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp)
		if retryAfter <= 0 {
			retryAfter = s.defaultRetryAfter
		}
		return &shared.RateLimitError{RetryAfter: retryAfter}
	default:
		return &shared.UpstreamError{Status: resp.StatusCode, Message: message}
	}
}

// apiMessage extracts error.message from a Spotify error body, falling back to the raw text.
func apiMessage(body []byte) string {
	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// parseRetryAfter reads Retry-After as delay seconds or an HTTP date.
func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

// newBreaker trips after failures consecutive transient failures.
func newBreaker(name string, failures uint32, timeout time.Duration, logger *log.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: breakerSuccess,
	})
}

// breakerSuccess counts classified answers and caller cancellation as successes.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, shared.ErrUpstreamTransient) {
		return false
	}
	return errors.Is(err, shared.ErrUpstreamAuth) ||
		errors.Is(err, shared.ErrUpstreamPermission) ||
		errors.Is(err, shared.ErrUpstreamRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
