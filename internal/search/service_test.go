package search

import (
	"context"
	"strings"
	"testing"

	"notedeck/api/internal/store"
)

// mockAccess is an in-memory AccessLister for testing
type mockAccess struct {
	notes map[int64][]store.NoteSummary
}

func (m *mockAccess) AccessibleNotes(ctx context.Context, userID int64) ([]store.NoteSummary, error) {
	return m.notes[userID], nil
}

func (m *mockAccess) Search(ctx context.Context, userID int64, substring string) ([]store.NoteSummary, error) {
	needle := strings.ToLower(substring)
	var out []store.NoteSummary
	for _, item := range m.notes[userID] {
		if strings.Contains(strings.ToLower(item.Title), needle) || strings.Contains(strings.ToLower(item.Content), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestSearchFallback(t *testing.T) {
	ctx := context.Background()
	access := &mockAccess{notes: map[int64][]store.NoteSummary{
		1: {
			{ID: 10, Title: "Groceries", Content: "Milk and eggs", OwnerUsername: "alice"},
			{ID: 12, Title: "Shared plan", Content: "Weekend hike", OwnerUsername: "bob", SharedWithViewer: true},
		},
	}}
	svc := NewService(nil, access)

	t.Run("matches title", func(t *testing.T) {
		resp, err := svc.Search(ctx, 1, "groceries")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if resp.Total != 1 || resp.Results[0].NoteID != 10 {
			t.Errorf("expected note 10, got %+v", resp.Results)
		}
	})

	t.Run("matches content", func(t *testing.T) {
		resp, err := svc.Search(ctx, 1, "hike")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if resp.Total != 1 || resp.Results[0].NoteID != 12 {
			t.Errorf("expected note 12, got %+v", resp.Results)
		}
		if !resp.Results[0].SharedWithViewer {
			t.Error("share flag not carried into result")
		}
	})

	t.Run("blank query", func(t *testing.T) {
		resp, err := svc.Search(ctx, 1, "   ")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if resp.Total != 0 || len(resp.Results) != 0 {
			t.Errorf("expected empty response, got %+v", resp)
		}
	})

	t.Run("other user sees nothing", func(t *testing.T) {
		resp, err := svc.Search(ctx, 2, "groceries")
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if resp.Total != 0 {
			t.Errorf("expected no results for user 2, got %d", resp.Total)
		}
	})
}

func TestIndexWithoutMeiliIsNoop(t *testing.T) {
	svc := NewService(nil, &mockAccess{notes: map[int64][]store.NoteSummary{}})
	// Must not panic or block when Meilisearch is not configured.
	svc.IndexNote(NoteRecord{ID: 1, Title: "t", Content: "c", Owner: "alice"})
	svc.RemoveNote(1)
	svc.ReindexAll([]NoteRecord{{ID: 1}})
}

func TestSnippet(t *testing.T) {
	short := snippet("  short body  ")
	if short != "short body" {
		t.Errorf("expected trimmed body, got %q", short)
	}

	long := snippet(strings.Repeat("a", 500))
	if len([]rune(long)) > 161 {
		t.Errorf("snippet too long: %d runes", len([]rune(long)))
	}
	if !strings.HasSuffix(long, "…") {
		t.Error("expected ellipsis on truncated snippet")
	}
}
