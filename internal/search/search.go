// Package search provides note search: Meilisearch when configured and
// healthy, the store's substring query otherwise. Results never widen
// access; everything is filtered to the caller's accessible set.
package search

// NoteRecord is the indexed shape of a note.
type NoteRecord struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Owner   string `json:"owner"`
}

// Result is one search hit, already access-filtered.
type Result struct {
	NoteID           int64  `json:"noteId"`
	Title            string `json:"title"`
	Snippet          string `json:"snippet"`
	OwnerUsername    string `json:"ownerUsername"`
	SharedWithViewer bool   `json:"sharedWithViewer"`
	SharedWithAnyone bool   `json:"sharedWithAnyone"`
}

// Response is the search payload handed to the boundary.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
