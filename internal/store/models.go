package store

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Note struct {
	ID              int64
	Title           string
	Content         string
	OwnerID         int64
	OwnerUsername   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Classifications map[string]string
}

// NoteSummary is a list row: the note plus its share flags and classification
// values. SharedWithViewer means the listing user holds a grant on the note;
// SharedWithAnyone means the owner has shared it with at least one user.
// The two are independent.
type NoteSummary struct {
	ID               int64
	Title            string
	Content          string
	OwnerID          int64
	OwnerUsername    string
	UpdatedAt        time.Time
	SharedWithViewer bool
	SharedWithAnyone bool
	Classifications  map[string]string
}

type Comment struct {
	ID        int64
	NoteID    int64
	AuthorID  int64
	Author    string
	Content   string
	CreatedAt time.Time
}

// DimensionCount is one stats row: how many of a user's notes carry Value in
// some dimension. Notes with no value for the dimension surface under the
// catalog's Unassigned label; no Unassigned row ever exists in storage.
type DimensionCount struct {
	Value string
	Count int
}
