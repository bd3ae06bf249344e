package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/collectarr/collectarr/internal/media"
	"github.com/collectarr/collectarr/internal/testutil"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	store := NewStore(tdb.Conn, tdb.Logger)
	return NewService(store, nil, tdb.Logger), tdb.Close
}

func TestCreateValidation(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name    string
		col     Collection
		wantErr bool
	}{
		{
			name:    "valid manual",
			col:     Collection{Name: "Favorites", SourceType: SourceManual},
			wantErr: false,
		},
		{
			name:    "valid trakt list",
			col:     Collection{Name: "Trakt", SourceType: SourceTraktList, SourceID: "user/list"},
			wantErr: false,
		},
		{
			name:    "missing name",
			col:     Collection{SourceType: SourceManual},
			wantErr: true,
		},
		{
			name:    "list source without source id",
			col:     Collection{Name: "MDB", SourceType: SourceMDBList},
			wantErr: true,
		},
		{
			name:    "manual with source id",
			col:     Collection{Name: "Manual", SourceType: SourceManual, SourceID: "x"},
			wantErr: true,
		},
		{
			name:    "unknown source type",
			col:     Collection{Name: "X", SourceType: SourceType("LETTERBOXD")},
			wantErr: true,
		},
		{
			name:    "bad refresh time",
			col:     Collection{Name: "X", SourceType: SourceManual, RefreshTimeOfDay: "25:00"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &tt.col)
			if tt.wantErr && !errors.Is(err, ErrInvalidCollection) {
				t.Errorf("expected ErrInvalidCollection, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAddItemToMissingCollection(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	_, err := svc.AddItem(context.Background(), "nope", media.RawEntry{
		Title: "The Matrix", MediaType: media.TypeMovie,
	})
	if !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestAddItemDeduplicatesByIdentity(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	col, err := svc.Create(ctx, &Collection{Name: "Favorites", SourceType: SourceManual})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entry := media.RawEntry{
		Title: "The Matrix", Year: 1999, MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 603},
	}
	if _, err := svc.AddItem(ctx, col.ID, entry); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := svc.AddItem(ctx, col.ID, entry); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	stats, err := svc.Stats(ctx, col.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("expected 1 item after duplicate add, got %d", stats.Total)
	}
}

func TestAddItemWithoutIdentifiersStaysVisible(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	col, _ := svc.Create(ctx, &Collection{Name: "Favorites", SourceType: SourceManual})

	item, err := svc.AddItem(ctx, col.ID, media.RawEntry{
		Title: "Obscure Short", Year: 2003, MediaType: media.TypeMovie,
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if !item.Unmatched() {
		t.Error("expected item without identifiers to be unmatched")
	}
	if item.InEmby {
		t.Error("unmatched item must never count as present")
	}
}

func TestRemoveItemChecksOwnership(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	colA, _ := svc.Create(ctx, &Collection{Name: "A", SourceType: SourceManual})
	colB, _ := svc.Create(ctx, &Collection{Name: "B", SourceType: SourceManual})

	item, err := svc.AddItem(ctx, colA.ID, media.RawEntry{
		Title: "The Matrix", MediaType: media.TypeMovie,
		IDs: media.ExternalIDs{TMDB: 603},
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := svc.RemoveItem(ctx, colB.ID, item.ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound for foreign item, got %v", err)
	}
	if err := svc.RemoveItem(ctx, colA.ID, item.ID); err != nil {
		t.Errorf("RemoveItem failed: %v", err)
	}
}

func TestStats(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	col, _ := svc.Create(ctx, &Collection{Name: "Favorites", SourceType: SourceManual})
	for _, tmdb := range []int{603, 604, 605} {
		if _, err := svc.AddItem(ctx, col.ID, media.RawEntry{
			Title: "Movie", MediaType: media.TypeMovie,
			IDs: media.ExternalIDs{TMDB: tmdb},
		}); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}
	if err := svc.Store().SetItemPresence(ctx, col.ID, map[string]bool{"tmdb:603": true, "tmdb:604": true}); err != nil {
		t.Fatalf("SetItemPresence failed: %v", err)
	}

	stats, err := svc.Stats(ctx, col.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.InEmby != 2 || stats.Missing != 1 || stats.PercentInLibrary != 67 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
