package notes

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"notedeck/api/internal/catalog"
	"notedeck/api/internal/domain"
	"notedeck/api/internal/store"
)

// mockNoteStore is an in-memory NoteStore for testing
type mockNoteStore struct {
	notes  map[int64]store.Note
	nextID int64
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{notes: make(map[int64]store.Note), nextID: 1}
}

func (m *mockNoteStore) InsertNote(ctx context.Context, title, content string, ownerID int64, classifications map[string]string) (int64, error) {
	id := m.nextID
	m.nextID++
	m.notes[id] = store.Note{
		ID:              id,
		Title:           title,
		Content:         content,
		OwnerID:         ownerID,
		Classifications: classifications,
	}
	return id, nil
}

func (m *mockNoteStore) GetNote(ctx context.Context, noteID int64) (store.Note, error) {
	note, ok := m.notes[noteID]
	if !ok {
		return store.Note{}, sql.ErrNoRows
	}
	return note, nil
}

func (m *mockNoteStore) UpdateNote(ctx context.Context, noteID int64, title, content string, classifications map[string]string) error {
	note, ok := m.notes[noteID]
	if !ok {
		return sql.ErrNoRows
	}
	note.Title = title
	note.Content = content
	note.Classifications = classifications
	m.notes[noteID] = note
	return nil
}

func (m *mockNoteStore) DeleteNote(ctx context.Context, noteID int64) error {
	if _, ok := m.notes[noteID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.notes, noteID)
	return nil
}

func (m *mockNoteStore) ListNotesByOwner(ctx context.Context, ownerID int64) ([]store.NoteSummary, error) {
	var out []store.NoteSummary
	for _, note := range m.notes {
		if note.OwnerID == ownerID {
			out = append(out, store.NoteSummary{ID: note.ID, Title: note.Title, OwnerID: note.OwnerID})
		}
	}
	return out, nil
}

func (m *mockNoteStore) CountNotesByOwner(ctx context.Context, ownerID int64) (int, error) {
	count := 0
	for _, note := range m.notes {
		if note.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *mockNoteStore) CountByDimension(ctx context.Context, ownerID int64, dimension, unassigned string) ([]store.DimensionCount, error) {
	counts := make(map[string]int)
	for _, note := range m.notes {
		if note.OwnerID != ownerID {
			continue
		}
		value, ok := note.Classifications[dimension]
		if !ok {
			value = unassigned
		}
		counts[value]++
	}
	var out []store.DimensionCount
	for value, count := range counts {
		out = append(out, store.DimensionCount{Value: value, Count: count})
	}
	return out, nil
}

// allowAll grants view access unless the note is missing from the store
type allowAll struct{ store *mockNoteStore }

func (a allowAll) CanView(ctx context.Context, noteID, userID int64) (bool, error) {
	if _, ok := a.store.notes[noteID]; !ok {
		return false, domain.NotFound("note")
	}
	return true, nil
}

// ownerOnly grants view access to the owner only
type ownerOnly struct{ store *mockNoteStore }

func (a ownerOnly) CanView(ctx context.Context, noteID, userID int64) (bool, error) {
	note, ok := a.store.notes[noteID]
	if !ok {
		return false, domain.NotFound("note")
	}
	return note.OwnerID == userID, nil
}

func newTestService() (*Service, *mockNoteStore) {
	st := newMockNoteStore()
	return New(st, allowAll{store: st}), st
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected a domain error, got %v", err)
	}
	if domainErr.Code != code {
		t.Errorf("expected code %s, got %s", code, domainErr.Code)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, st := newTestService()
		id, err := svc.Create(ctx, 1, Input{
			Title:           "Groceries",
			Content:         "Milk, eggs",
			Classifications: map[string]string{"Status": "Todo", "Context": "Home"},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		note := st.notes[id]
		if note.OwnerID != 1 {
			t.Errorf("expected owner 1, got %d", note.OwnerID)
		}
		if note.Classifications["Status"] != "Todo" {
			t.Errorf("classification not persisted: %v", note.Classifications)
		}
	})

	t.Run("empty title", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{Title: "   ", Content: "body"})
		assertDomainCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("title too long", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{Title: strings.Repeat("x", 101), Content: "body"})
		assertDomainCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("empty content", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{Title: "title", Content: ""})
		assertDomainCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("content too long", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{Title: "title", Content: strings.Repeat("x", 5001)})
		assertDomainCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("content at limit", func(t *testing.T) {
		svc, _ := newTestService()
		if _, err := svc.Create(ctx, 1, Input{Title: "title", Content: strings.Repeat("x", 5000)}); err != nil {
			t.Errorf("Create at limit failed: %v", err)
		}
	})

	t.Run("unknown classification value", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{
			Title:           "title",
			Content:         "body",
			Classifications: map[string]string{"Status": "Archived"},
		})
		assertDomainCode(t, err, "INVALID_CLASSIFICATION")
	})

	t.Run("unknown classification dimension", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{
			Title:           "title",
			Content:         "body",
			Classifications: map[string]string{"Mood": "Happy"},
		})
		assertDomainCode(t, err, "INVALID_CLASSIFICATION")
	})

	t.Run("unassigned is not storable", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Create(ctx, 1, Input{
			Title:           "title",
			Content:         "body",
			Classifications: map[string]string{"Status": catalog.Unassigned},
		})
		assertDomainCode(t, err, "INVALID_CLASSIFICATION")
	})
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("missing note", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Get(ctx, 1, 999)
		assertDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		st := newMockNoteStore()
		svc := New(st, ownerOnly{store: st})
		id, err := svc.Create(ctx, 1, Input{Title: "title", Content: "body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		_, err = svc.Get(ctx, 2, id)
		assertDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("owner reads own note", func(t *testing.T) {
		st := newMockNoteStore()
		svc := New(st, ownerOnly{store: st})
		id, err := svc.Create(ctx, 1, Input{Title: "title", Content: "body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		note, err := svc.Get(ctx, 1, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if note.Title != "title" {
			t.Errorf("expected title, got %q", note.Title)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner replaces fields and classifications", func(t *testing.T) {
		svc, st := newTestService()
		id, err := svc.Create(ctx, 1, Input{
			Title:           "old",
			Content:         "old body",
			Classifications: map[string]string{"Status": "Todo", "Priority": "Low"},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err = svc.Update(ctx, 1, id, Input{
			Title:           "new",
			Content:         "new body",
			Classifications: map[string]string{"Status": "Done"},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		note := st.notes[id]
		if note.Title != "new" || note.Content != "new body" {
			t.Errorf("fields not updated: %+v", note)
		}
		if _, kept := note.Classifications["Priority"]; kept {
			t.Error("classification set not replaced wholesale")
		}
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		id, err := svc.Create(ctx, 1, Input{Title: "title", Content: "body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err = svc.Update(ctx, 2, id, Input{Title: "new", Content: "new"})
		assertDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("missing note", func(t *testing.T) {
		svc, _ := newTestService()
		err := svc.Update(ctx, 1, 999, Input{Title: "new", Content: "new"})
		assertDomainCode(t, err, "NOT_FOUND")
	})

	t.Run("invalid input rejected", func(t *testing.T) {
		svc, st := newTestService()
		id, err := svc.Create(ctx, 1, Input{Title: "title", Content: "body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err = svc.Update(ctx, 1, id, Input{Title: "", Content: "new"})
		assertDomainCode(t, err, "VALIDATION_ERROR")
		if st.notes[id].Title != "title" {
			t.Error("note changed despite validation failure")
		}
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("owner removes", func(t *testing.T) {
		svc, st := newTestService()
		id, err := svc.Create(ctx, 1, Input{Title: "title", Content: "body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := svc.Remove(ctx, 1, id); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if _, ok := st.notes[id]; ok {
			t.Error("note still present after Remove")
		}
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		svc, _ := newTestService()
		id, err := svc.Create(ctx, 1, Input{Title: "title", Content: "body"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err = svc.Remove(ctx, 2, id)
		assertDomainCode(t, err, "FORBIDDEN")
	})

	t.Run("missing note", func(t *testing.T) {
		svc, _ := newTestService()
		err := svc.Remove(ctx, 1, 999)
		assertDomainCode(t, err, "NOT_FOUND")
	})
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	mustCreate := func(in Input) {
		t.Helper()
		if _, err := svc.Create(ctx, 1, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	mustCreate(Input{Title: "a", Content: "x", Classifications: map[string]string{"Status": "Todo"}})
	mustCreate(Input{Title: "b", Content: "x", Classifications: map[string]string{"Status": "Todo", "Priority": "High"}})
	mustCreate(Input{Title: "c", Content: "x"})

	stats, err := svc.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}

	statusCounts := make(map[string]int)
	for _, row := range stats.ByDimension["Status"] {
		statusCounts[row.Value] = row.Count
	}
	if statusCounts["Todo"] != 2 {
		t.Errorf("expected 2 Todo, got %d", statusCounts["Todo"])
	}
	if statusCounts[catalog.Unassigned] != 1 {
		t.Errorf("expected 1 Unassigned, got %d", statusCounts[catalog.Unassigned])
	}

	priorityCounts := make(map[string]int)
	for _, row := range stats.ByDimension["Priority"] {
		priorityCounts[row.Value] = row.Count
	}
	if priorityCounts[catalog.Unassigned] != 2 {
		t.Errorf("expected 2 Unassigned priority, got %d", priorityCounts[catalog.Unassigned])
	}
}
