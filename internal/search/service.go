package search

import (
	"context"
	"log"
	"strings"

	"notedeck/api/internal/store"
)

// AccessLister supplies the caller's accessible-note set and the store-side
// substring search used as fallback. Implemented by the access service.
type AccessLister interface {
	AccessibleNotes(ctx context.Context, userID int64) ([]store.NoteSummary, error)
	Search(ctx context.Context, userID int64, substring string) ([]store.NoteSummary, error)
}

// Service is the facade that tries Meilisearch first and falls back to the
// store's ILIKE query. meili may be nil when Meilisearch is not configured.
type Service struct {
	meili  *Meili
	access AccessLister
}

func NewService(meili *Meili, access AccessLister) *Service {
	return &Service{meili: meili, access: access}
}

// Search runs an access-scoped note search for userID.
func (s *Service) Search(ctx context.Context, userID int64, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{Results: []Result{}, Total: 0, Query: text}, nil
	}

	if s.meili != nil && s.meili.Healthy() {
		hits, err := s.meili.Search(text, 50)
		if err == nil {
			results, err := s.filterToAccessible(ctx, userID, hits)
			if err != nil {
				return Response{}, err
			}
			return Response{Results: results, Total: len(results), Query: text}, nil
		}
		log.Printf("search: meilisearch error, falling back to store: %v", err)
	}

	summaries, err := s.access.Search(ctx, userID, text)
	if err != nil {
		return Response{}, err
	}
	results := make([]Result, 0, len(summaries))
	for _, item := range summaries {
		results = append(results, summaryResult(item, snippet(item.Content)))
	}
	return Response{Results: results, Total: len(results), Query: text}, nil
}

// filterToAccessible drops hits the caller cannot view, keeping Meilisearch
// relevance order for the rest.
func (s *Service) filterToAccessible(ctx context.Context, userID int64, hits []NoteHit) ([]Result, error) {
	accessible, err := s.access.AccessibleNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]store.NoteSummary, len(accessible))
	for _, item := range accessible {
		byID[item.ID] = item
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		item, ok := byID[hit.ID]
		if !ok {
			continue
		}
		results = append(results, summaryResult(item, firstNonBlank(hit.Snippet, snippet(item.Content))))
	}
	return results, nil
}

// IndexNote pushes a note into the search index (fire-and-forget).
func (s *Service) IndexNote(record NoteRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexNote(record); err != nil {
			log.Printf("search: index note %d: %v", record.ID, err)
		}
	}()
}

// RemoveNote drops a note from the search index (fire-and-forget).
func (s *Service) RemoveNote(noteID int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteNote(noteID); err != nil {
			log.Printf("search: delete note %d: %v", noteID, err)
		}
	}()
}

// ReindexAll bulk-loads records into Meilisearch, e.g. at startup.
func (s *Service) ReindexAll(records []NoteRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexNotes(records); err != nil {
		log.Printf("search: reindex notes: %v", err)
	}
}

func summaryResult(item store.NoteSummary, snippetText string) Result {
	return Result{
		NoteID:           item.ID,
		Title:            item.Title,
		Snippet:          snippetText,
		OwnerUsername:    item.OwnerUsername,
		SharedWithViewer: item.SharedWithViewer,
		SharedWithAnyone: item.SharedWithAnyone,
	}
}

func snippet(content string) string {
	const maxLen = 160
	trimmed := strings.TrimSpace(content)
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "…"
}
