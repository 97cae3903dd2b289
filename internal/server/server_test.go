package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func exchangeOK(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh", TokenType: "Bearer"}, nil
}

func receive(t *testing.T, h *OAuthHandler) OAuthResult {
	t.Helper()
	select {
	case result := <-h.Result():
		return result
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for oauth result")
		return OAuthResult{}
	}
}

func TestOAuthHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		exchange   ExchangeFunc
		wantStatus int
		wantToken  string
		wantErr    string
	}{
		{
			name:       "successful exchange",
			query:      "?state=xyz&code=abc",
			exchange:   exchangeOK,
			wantStatus: http.StatusOK,
			wantToken:  "access-abc",
		},
		{
			name:       "state mismatch",
			query:      "?state=nope&code=abc",
			exchange:   exchangeOK,
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid state",
		},
		{
			name:       "access denied",
			query:      "?state=xyz&error=access_denied&error_description=user+said+no",
			exchange:   exchangeOK,
			wantStatus: http.StatusBadRequest,
			wantErr:    "access_denied - user said no",
		},
		{
			name:  "exchange failure",
			query: "?state=xyz&code=abc",
			exchange: func(ctx context.Context, code string) (*oauth2.Token, error) {
				return nil, errors.New("bad code")
			},
			wantStatus: http.StatusInternalServerError,
			wantErr:    "token exchange failed: bad code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(tt.exchange, "xyz")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("expected html response, got %q", ct)
			}

			result := receive(t, h)
			if tt.wantErr != "" {
				if result.Error() == nil || !strings.Contains(result.Error().Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %v", tt.wantErr, result.Error())
				}
				return
			}
			if result.Error() != nil {
				t.Fatalf("unexpected error: %v", result.Error())
			}
			if result.Token.AccessToken != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, result.Token.AccessToken)
			}
		})
	}

	t.Run("second callback is rejected", func(t *testing.T) {
		h := NewOAuthHandler(ExchangeFunc(exchangeOK), "xyz")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=one", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=two", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replay, got %d", second.Code)
		}
		if result := receive(t, h); result.Token.AccessToken != "access-one" {
			t.Errorf("expected first token, got %q", result.Token.AccessToken)
		}
		if _, open := <-h.Result(); open {
			t.Error("expected result channel to be closed")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewBasicRouter()
	router.Use(mark("first"), mark("second"))
	router.Handle("get", "/health", Health())
	router.Handler(NewOAuthHandler(ExchangeFunc(exchangeOK), "xyz"))

	t.Run("middleware order", func(t *testing.T) {
		order = nil
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second got %v", order)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("handler routes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=c", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	handler := NewOAuthHandler(ExchangeFunc(exchangeOK), "state")
	srv, err := NewCallbackServer("127.0.0.1:0", handler, log.New(io.Discard))
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	srv.Start()
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/callback?state=state&code=live")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Account Linked") {
		t.Errorf("unexpected response %d: %s", resp.StatusCode, body)
	}
	if result := receive(t, handler); result.Token == nil || result.Token.AccessToken != "access-live" {
		t.Errorf("unexpected result %+v", result)
	}
}
