package blend

import (
	"reflect"
	"testing"

	"github.com/desertthunder/betterblend/internal/models"
)

func TestBlend(t *testing.T) {
	t.Run("OverlapGoesToPartner", func(t *testing.T) {
		creator := []models.Track{track("A", 90), track("B", 50)}
		partner := []models.Track{track("B", 80), track("C", 60)}

		got := ids(Blend(creator, partner, 0.5, 2))
		want := []string{"A", "B"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Blend() = %v, want %v", got, want)
		}
	})

	t.Run("InterleavesCreatorFirst", func(t *testing.T) {
		creator := []models.Track{track("c1", 10), track("c2", 90), track("c3", 50)}
		partner := []models.Track{track("p1", 70), track("p2", 80), track("p3", 20)}

		got := ids(Blend(creator, partner, 0.5, 6))
		want := []string{"c2", "p2", "c3", "p1", "c1", "p3"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Blend() = %v, want %v", got, want)
		}
	})

	t.Run("RatioSplitsSlots", func(t *testing.T) {
		creator := tracks("c", 20)
		partner := tracks("p", 20)

		got := Blend(creator, partner, 0.7, 10)
		counts := map[byte]int{}
		for _, tr := range got {
			counts[tr.ID[0]]++
		}
		if counts['c'] != 7 || counts['p'] != 3 {
			t.Errorf("expected 7 creator and 3 partner tracks, got %v", counts)
		}

		got = Blend(creator, partner, 0.3, 10)
		counts = map[byte]int{}
		for _, tr := range got {
			counts[tr.ID[0]]++
		}
		if counts['c'] != 3 || counts['p'] != 7 {
			t.Errorf("expected 3 creator and 7 partner tracks, got %v", counts)
		}
	})

	t.Run("CreatorCountRoundsHalfUp", func(t *testing.T) {
		got := Blend(tracks("c", 10), tracks("p", 10), 0.5, 5)
		creatorCount := 0
		for _, tr := range got {
			if tr.ID[0] == 'c' {
				creatorCount++
			}
		}
		if creatorCount != 3 || len(got) != 5 {
			t.Errorf("expected 3 of 5 creator tracks, got %d of %d", creatorCount, len(got))
		}
	})

	t.Run("NoBackfill", func(t *testing.T) {
		creator := []models.Track{track("c0", 50)}
		partner := tracks("p", 10)

		got := Blend(creator, partner, 0.5, 10)
		if len(got) != 6 {
			t.Errorf("expected 1 creator + 5 partner tracks, got %d: %v", len(got), ids(got))
		}
	})

	t.Run("DedupeKeepsLastRecord", func(t *testing.T) {
		creator := []models.Track{track("x", 10), track("y", 50), track("x", 90)}

		got := Blend(creator, nil, 0.7, 10)
		if len(got) != 2 {
			t.Fatalf("expected 2 unique tracks, got %v", ids(got))
		}
		if got[0].ID != "x" || got[0].Popularity != 90 {
			t.Errorf("expected x with popularity 90 first, got %+v", got[0])
		}
	})

	t.Run("ZeroLength", func(t *testing.T) {
		got := Blend(tracks("c", 5), tracks("p", 5), 0.5, 0)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty playlist, got %v", got)
		}
		if got := Blend(tracks("c", 5), tracks("p", 5), 0.5, -4); len(got) != 0 {
			t.Errorf("expected empty playlist for negative length, got %v", got)
		}
	})

	t.Run("EmptyInputs", func(t *testing.T) {
		if got := Blend(nil, nil, 0.5, 25); len(got) != 0 {
			t.Errorf("expected empty playlist, got %v", got)
		}
	})

	t.Run("DoesNotMutateInputs", func(t *testing.T) {
		creator := []models.Track{track("a", 1), track("b", 99), track("a", 5)}
		before := append([]models.Track(nil), creator...)

		Blend(creator, tracks("p", 3), 0.5, 4)
		if !reflect.DeepEqual(creator, before) {
			t.Errorf("input was modified: %v", ids(creator))
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		creator := append(tracks("c", 30), track("shared", 77))
		partner := append(tracks("p", 30), track("shared", 10))

		first := Blend(creator, partner, 0.4, 25)
		second := Blend(creator, partner, 0.4, 25)
		if !reflect.DeepEqual(first, second) {
			t.Error("expected identical playlists for identical inputs")
		}
	})

	t.Run("LengthBounds", func(t *testing.T) {
		for _, ratio := range []float64{0.3, 0.4, 0.5, 0.6, 0.7} {
			for _, length := range []int{1, 2, 7, 25, 50, 100} {
				for _, avail := range []int{0, 3, 20, 80} {
					creator := tracks("c", avail)
					partner := tracks("p", avail)
					got := Blend(creator, partner, ratio, length)

					creatorCount := roundHalfUp(float64(length) * ratio)
					want := min(creatorCount, avail) + min(length-creatorCount, avail)
					if len(got) != want {
						t.Errorf("ratio=%v length=%d avail=%d: expected %d tracks, got %d", ratio, length, avail, want, len(got))
					}
					if len(got) > length {
						t.Errorf("ratio=%v length=%d: playlist exceeds target with %d tracks", ratio, length, len(got))
					}
					if avail >= length && len(got) != length {
						t.Errorf("ratio=%v length=%d: expected full playlist when both sides have enough tracks", ratio, length)
					}
				}
			}
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		creator := tracks("c", 10)
		partner := tracks("p", 10)
		first := Blend(creator, partner, 0.5, 10)

		overlap := Blend(first, partner, 0.5, 10)
		if len(overlap) > 10 {
			t.Errorf("full overlap round trip exceeded length: %d", len(overlap))
		}

		disjoint := Blend(first, tracks("z", 10), 0.5, 10)
		if len(disjoint) != 10 {
			t.Errorf("expected 10 tracks for disjoint round trip, got %d", len(disjoint))
		}

		self := Blend(first, first, 0.5, 10)
		if len(self) != 5 {
			t.Errorf("expected only the partner half when both sides match, got %d", len(self))
		}
	})
}

func TestGenerate(t *testing.T) {
	cfg := models.BlendConfig{Ratio: 0.5, Window: models.WindowShort, Length: 2}
	creator := snapshot("c", []models.Track{track("A", 90), track("B", 50)}, artists("a", 1))
	partner := snapshot("p", []models.Track{track("B", 80), track("C", 60)}, artists("a", 1))

	playlist := Generate(creator, partner, cfg)
	if !reflect.DeepEqual(ids(playlist.Tracks), []string{"A", "B"}) {
		t.Errorf("unexpected playlist %v", ids(playlist.Tracks))
	}
	if playlist.Config != cfg {
		t.Errorf("expected config to be carried, got %+v", playlist.Config)
	}
	if got := Generate(nil, nil, cfg); len(got.Tracks) != 0 {
		t.Errorf("expected empty playlist for nil snapshots, got %v", ids(got.Tracks))
	}
}
