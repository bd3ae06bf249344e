package media

import "testing"

func TestMergeNeverLosesIdentifiers(t *testing.T) {
	known := ExternalIDs{IMDB: "tt0133093", TMDB: 603}

	// A lookup that comes back with less information must not erase
	// identifiers already accumulated.
	merged := known.Merge(ExternalIDs{})
	if merged != known {
		t.Errorf("Merge(empty) = %+v, want %+v", merged, known)
	}

	// A lookup that fills a gap grows the set.
	merged = known.Merge(ExternalIDs{TVDB: 73262})
	if merged.IMDB != "tt0133093" || merged.TMDB != 603 || merged.TVDB != 73262 {
		t.Errorf("Merge(gap fill) = %+v", merged)
	}

	// A conflicting value never replaces what we already know.
	merged = known.Merge(ExternalIDs{TMDB: 999})
	if merged.TMDB != 603 {
		t.Errorf("Merge overwrote TMDB: got %d, want 603", merged.TMDB)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	ids := ExternalIDs{IMDB: "tt0111161", TMDB: 278}
	once := ids.Merge(ExternalIDs{TVDB: 81189})
	twice := once.Merge(ExternalIDs{TVDB: 81189})
	if once != twice {
		t.Errorf("second merge changed result: %+v != %+v", once, twice)
	}
}

func TestCanonicalKeyPreferenceOrder(t *testing.T) {
	tests := []struct {
		name      string
		mediaType MediaType
		ids       ExternalIDs
		title     string
		year      int
		want      string
	}{
		{"movie prefers tmdb", TypeMovie, ExternalIDs{IMDB: "tt0133093", TMDB: 603, TVDB: 5}, "The Matrix", 1999, "tmdb:603"},
		{"show prefers tvdb", TypeShow, ExternalIDs{IMDB: "tt0903747", TMDB: 1396, TVDB: 81189}, "Breaking Bad", 2008, "tvdb:81189"},
		{"show falls back to tmdb", TypeShow, ExternalIDs{TMDB: 1396}, "Breaking Bad", 2008, "tmdb:1396"},
		{"movie falls back to tvdb", TypeMovie, ExternalIDs{TVDB: 12}, "Obscure", 1980, "tvdb:12"},
		{"imdb as last id", TypeMovie, ExternalIDs{IMDB: "tt0133093"}, "The Matrix", 1999, "imdb:tt0133093"},
		{"title fallback", TypeMovie, ExternalIDs{}, "The Matrix: Reloaded", 2003, "title:the matrix reloaded|2003|MOVIE"},
		{"title fallback distinguishes media type", TypeShow, ExternalIDs{}, "Fargo", 2014, "title:fargo|2014|SHOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalKey(tt.mediaType, tt.ids, tt.title, tt.year)
			if got != tt.want {
				t.Errorf("CanonicalKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Matrix", "the matrix"},
		{"The Matrix: Reloaded", "the matrix reloaded"},
		{"  Spider-Man!!  ", "spider man"},
		{"WALL·E", "wall e"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnmatchedItem(t *testing.T) {
	item := Item{Title: "Home Movie", Year: 2021, MediaType: TypeMovie}
	if !item.Unmatched() {
		t.Error("item with no external ids should be unmatched")
	}
	item.IDs.TMDB = 603
	if item.Unmatched() {
		t.Error("item with tmdb id should be matched")
	}
}
