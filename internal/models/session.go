package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus tracks a blend session through its lifecycle.
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"   // created, waiting for a partner
	SessionActive    SessionStatus = "ACTIVE"    // partner joined
	SessionGenerated SessionStatus = "GENERATED" // playlist published, terminal
	SessionExpired   SessionStatus = "EXPIRED"   // not joined before ExpiresAt
)

// Role is a participant's side of a session.
type Role string

const (
	RoleCreator Role = "creator"
	RolePartner Role = "partner"
)

// Session is a two-party blend session.
type Session struct {
	entity
	Code        string
	CreatorID   string
	PartnerID   string
	Status      SessionStatus
	Config      BlendConfig
	ExpiresAt   time.Time
	Result      *BlendResult
	Publication *Publication
}

var _ Model = (*Session)(nil)

// NewSession creates a pending session owned by creatorID.
func NewSession(sequence int, code, creatorID string, config BlendConfig, expiresAt time.Time) *Session {
	return &Session{
		entity:    newEntity(sequence),
		Code:      code,
		CreatorID: creatorID,
		Status:    SessionPending,
		Config:    config,
		ExpiresAt: expiresAt,
	}
}

// IsParticipant reports whether listenerID is the creator or the partner.
func (s *Session) IsParticipant(listenerID string) bool {
	if listenerID == "" {
		return false
	}
	return s.CreatorID == listenerID || s.PartnerID == listenerID
}

// RoleOf returns the side listenerID plays in the session.
func (s *Session) RoleOf(listenerID string) (Role, bool) {
	switch {
	case listenerID == "":
		return "", false
	case s.CreatorID == listenerID:
		return RoleCreator, true
	case s.PartnerID == listenerID:
		return RolePartner, true
	}
	return "", false
}

// HasPartner reports whether a partner has joined.
func (s *Session) HasPartner() bool {
	return s.PartnerID != ""
}

// Expired reports whether the session passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.Status == SessionExpired || now.After(s.ExpiresAt)
}

func (s *Session) Validate() error {
	if s.Code == "" {
		return fmt.Errorf("session code is required")
	}
	if s.CreatorID == "" {
		return fmt.Errorf("session creator is required")
	}
	if s.PartnerID != "" && s.PartnerID == s.CreatorID {
		return fmt.Errorf("session partner must differ from creator")
	}
	switch s.Status {
	case SessionPending, SessionActive, SessionGenerated, SessionExpired:
	default:
		return fmt.Errorf("unknown session status %q", s.Status)
	}
	if s.Config.Ratio < MinBlendRatio || s.Config.Ratio > MaxBlendRatio {
		return fmt.Errorf("ratio %.2f outside [%.1f, %.1f]", s.Config.Ratio, MinBlendRatio, MaxBlendRatio)
	}
	if !s.Config.Window.Valid() {
		return fmt.Errorf("unknown window %q", s.Config.Window)
	}
	if s.Config.Length <= 0 {
		return fmt.Errorf("playlist length must be positive")
	}
	return nil
}

func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string        `json:"id"`
		Code        string        `json:"code"`
		CreatorID   string        `json:"creator_id"`
		PartnerID   string        `json:"partner_id,omitempty"`
		Status      SessionStatus `json:"status"`
		Config      BlendConfig   `json:"config"`
		ExpiresAt   time.Time     `json:"expires_at"`
		Result      *BlendResult  `json:"result,omitempty"`
		Publication *Publication  `json:"publication,omitempty"`
		CreatedAt   time.Time     `json:"created_at"`
		UpdatedAt   time.Time     `json:"updated_at"`
	}{s.id, s.Code, s.CreatorID, s.PartnerID, s.Status, s.Config, s.ExpiresAt, s.Result, s.Publication, s.createdAt, s.updatedAt})
}
