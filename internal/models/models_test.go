package models

import (
	"reflect"
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"short", WindowShort, false},
		{"medium_term", WindowMedium, false},
		{" LONG ", WindowLong, false},
		{"long_term", WindowLong, false},
		{"forever", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWindow(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if WindowMedium.TimeRange() != "medium_term" {
		t.Errorf("expected medium_term, got %s", WindowMedium.TimeRange())
	}
}

func TestAccountMissingScopes(t *testing.T) {
	acct := &Account{Scopes: []string{"user-top-read", "user-read-email"}}
	required := []string{"user-read-email", "user-top-read", "playlist-modify-public"}

	got := acct.MissingScopes(required)
	want := []string{"playlist-modify-public"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingScopes() = %v, want %v", got, want)
	}

	acct.Scopes = append(acct.Scopes, "playlist-modify-public")
	if missing := acct.MissingScopes(required); len(missing) != 0 {
		t.Errorf("expected no missing scopes, got %v", missing)
	}
}

func TestSession(t *testing.T) {
	expires := time.Now().Add(time.Hour)

	t.Run("Roles", func(t *testing.T) {
		s := NewSession(1, "ABC123", "creator", DefaultBlendConfig(), expires)

		if s.IsParticipant("partner") {
			t.Error("partner should not be a participant before joining")
		}

		s.PartnerID = "partner"

		if role, ok := s.RoleOf("creator"); !ok || role != RoleCreator {
			t.Errorf("expected creator role, got %q %v", role, ok)
		}
		if role, ok := s.RoleOf("partner"); !ok || role != RolePartner {
			t.Errorf("expected partner role, got %q %v", role, ok)
		}
		if _, ok := s.RoleOf("stranger"); ok {
			t.Error("stranger should have no role")
		}
		if s.IsParticipant("") {
			t.Error("empty listener id should never be a participant")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		s := NewSession(1, "ABC123", "creator", DefaultBlendConfig(), expires)
		if s.Expired(time.Now()) {
			t.Error("session should not be expired yet")
		}
		if !s.Expired(expires.Add(time.Second)) {
			t.Error("session should be expired after ExpiresAt")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(*Session)
			wantErr bool
		}{
			{"valid", func(*Session) {}, false},
			{"missing code", func(s *Session) { s.Code = "" }, true},
			{"self partner", func(s *Session) { s.PartnerID = s.CreatorID }, true},
			{"ratio low", func(s *Session) { s.Config.Ratio = 0.2 }, true},
			{"ratio bound", func(s *Session) { s.Config.Ratio = 0.7 }, false},
			{"bad window", func(s *Session) { s.Config.Window = "decade" }, true},
			{"zero length", func(s *Session) { s.Config.Length = 0 }, true},
			{"bad status", func(s *Session) { s.Status = "DONE" }, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := NewSession(1, "ABC123", "creator", DefaultBlendConfig(), expires)
				tt.mutate(s)
				if err := s.Validate(); (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})
}

func TestBlendPlaylistTrackURIs(t *testing.T) {
	p := BlendPlaylist{Tracks: []Track{{ID: "a"}, {ID: "b"}}}
	want := []string{"spotify:track:a", "spotify:track:b"}
	if got := p.TrackURIs(); !reflect.DeepEqual(got, want) {
		t.Errorf("TrackURIs() = %v, want %v", got, want)
	}
}
