package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Listener is a person with a linked streaming account.
type Listener struct {
	entity
	SpotifyID   string
	DisplayName string
	Email       string
}

var _ Model = (*Listener)(nil)

// NewListener creates a listener for the given provider account.
func NewListener(sequence int, spotifyID, displayName, email string) *Listener {
	return &Listener{
		entity:      newEntity(sequence),
		SpotifyID:   spotifyID,
		DisplayName: displayName,
		Email:       email,
	}
}

// Name returns the display name, falling back to the provider id.
func (l *Listener) Name() string {
	if l.DisplayName != "" {
		return l.DisplayName
	}
	return l.SpotifyID
}

func (l *Listener) Validate() error {
	if strings.TrimSpace(l.SpotifyID) == "" {
		return fmt.Errorf("listener spotify id is required")
	}
	return nil
}

func (l *Listener) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string    `json:"id"`
		SpotifyID   string    `json:"spotify_id"`
		DisplayName string    `json:"display_name"`
		Email       string    `json:"email,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}{l.id, l.SpotifyID, l.DisplayName, l.Email, l.createdAt})
}

// Account holds a listener's OAuth credentials and granted scopes.
type Account struct {
	ListenerID   string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	Scopes       []string
	UpdatedAt    time.Time
}

// MissingScopes returns the entries of required that were not granted, in order.
func (a *Account) MissingScopes(required []string) []string {
	granted := make(map[string]bool, len(a.Scopes))
	for _, s := range a.Scopes {
		granted[s] = true
	}

	var missing []string
	for _, s := range required {
		if !granted[s] {
			missing = append(missing, s)
		}
	}
	return missing
}
