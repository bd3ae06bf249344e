package presence

import (
	"testing"

	"github.com/collectarr/collectarr/internal/media"
)

func TestIndexLookupByAnyIdentifier(t *testing.T) {
	ix := NewIndex([]LibraryItem{
		{ID: "emby-1", IDs: media.ExternalIDs{TMDB: 603, IMDB: "tt0133093"}},
		{ID: "emby-2", IDs: media.ExternalIDs{TVDB: 81189}},
	})

	tests := []struct {
		name string
		ids  media.ExternalIDs
		want string
		ok   bool
	}{
		{"match by tmdb", media.ExternalIDs{TMDB: 603}, "emby-1", true},
		{"match by imdb", media.ExternalIDs{IMDB: "tt0133093"}, "emby-1", true},
		{"match by tvdb", media.ExternalIDs{TVDB: 81189}, "emby-2", true},
		{"partial ids still match", media.ExternalIDs{IMDB: "tt0133093", TMDB: 999999}, "emby-1", true},
		{"no identifiers never match", media.ExternalIDs{}, "", false},
		{"unknown ids", media.ExternalIDs{TMDB: 1}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ix.Lookup(tt.ids)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Lookup(%+v) = (%q, %v), want (%q, %v)", tt.ids, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIndexNeverMatchesByTitle(t *testing.T) {
	// Two items with the same title but different ids (a remake) must not
	// cross-match; the index only knows identifiers.
	ix := NewIndex([]LibraryItem{
		{ID: "emby-original", IDs: media.ExternalIDs{TMDB: 694}}, // The Shining (1980)
	})
	if ix.Contains(media.ExternalIDs{TMDB: 11342}) { // The Shining (1997 TV)
		t.Error("remake matched original by something other than id")
	}
}

func TestInventoryIndex(t *testing.T) {
	ix := NewInventoryIndex([]int{603, 278, 0})

	if !ix.Contains(603) {
		t.Error("Contains(603) = false, want true")
	}
	if ix.Contains(0) {
		t.Error("zero id must never match")
	}
	if ix.Contains(550) {
		t.Error("Contains(550) = true, want false")
	}
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		inEmby  int
		percent int
	}{
		{"empty collection reports zero", 0, 0, 0},
		{"all present", 10, 10, 100},
		{"none present", 10, 0, 0},
		{"rounds to nearest", 3, 2, 67},
		{"rounds half up", 8, 1, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeStats(tt.total, tt.inEmby)
			if s.PercentInLibrary != tt.percent {
				t.Errorf("PercentInLibrary = %d, want %d", s.PercentInLibrary, tt.percent)
			}
			if s.InEmby > s.Total {
				t.Errorf("invariant violated: inEmby %d > total %d", s.InEmby, s.Total)
			}
			if s.Missing != tt.total-tt.inEmby {
				t.Errorf("Missing = %d, want %d", s.Missing, tt.total-tt.inEmby)
			}
		})
	}
}
