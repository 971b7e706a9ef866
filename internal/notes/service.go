// Package notes implements the note repository: CRUD over notes and their
// classification tags. Ownership is fixed at creation; all write operations
// are owner-exclusive.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"notedeck/api/internal/catalog"
	"notedeck/api/internal/domain"
	"notedeck/api/internal/store"
)

const (
	maxTitleLen   = 100
	maxContentLen = 5000
)

// NoteStore defines the storage interface for the note repository
type NoteStore interface {
	InsertNote(ctx context.Context, title, content string, ownerID int64, classifications map[string]string) (int64, error)
	GetNote(ctx context.Context, noteID int64) (store.Note, error)
	UpdateNote(ctx context.Context, noteID int64, title, content string, classifications map[string]string) error
	DeleteNote(ctx context.Context, noteID int64) error
	ListNotesByOwner(ctx context.Context, ownerID int64) ([]store.NoteSummary, error)
	CountNotesByOwner(ctx context.Context, ownerID int64) (int, error)
	CountByDimension(ctx context.Context, ownerID int64, dimension, unassigned string) ([]store.DimensionCount, error)
}

// AccessChecker reports whether a user may view a note. Implemented by the
// access service.
type AccessChecker interface {
	CanView(ctx context.Context, noteID, userID int64) (bool, error)
}

type Service struct {
	store  NoteStore
	access AccessChecker
}

func New(store NoteStore, access AccessChecker) *Service {
	return &Service{store: store, access: access}
}

type Input struct {
	Title           string
	Content         string
	Classifications map[string]string
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Validation("title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return domain.Validation("title must be at most 100 characters")
	}
	if strings.TrimSpace(in.Content) == "" {
		return domain.Validation("content is required")
	}
	if utf8.RuneCountInString(in.Content) > maxContentLen {
		return domain.Validation("content must be at most 5000 characters")
	}
	for dimension, value := range in.Classifications {
		if !catalog.HasDimension(dimension) || !catalog.Valid(dimension, value) {
			return domain.InvalidClassification(dimension, value)
		}
	}
	return nil
}

// Create validates and persists a new note owned by callerID, classification
// set included, atomically.
func (s *Service) Create(ctx context.Context, callerID int64, in Input) (int64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}
	id, err := s.store.InsertNote(ctx, in.Title, in.Content, callerID, in.Classifications)
	if err != nil {
		return 0, fmt.Errorf("create note: %w", err)
	}
	return id, nil
}

// Get fetches a note with its owner username and classification map. The
// caller must be the owner or hold a share.
func (s *Service) Get(ctx context.Context, callerID, noteID int64) (store.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Note{}, domain.NotFound("note")
	}
	if err != nil {
		return store.Note{}, err
	}
	ok, err := s.access.CanView(ctx, noteID, callerID)
	if err != nil {
		return store.Note{}, err
	}
	if !ok {
		return store.Note{}, domain.Forbidden()
	}
	return note, nil
}

// Update re-validates and replaces the note's fields and its whole
// classification set. Owner only, shared viewers never gain write access.
func (s *Service) Update(ctx context.Context, callerID, noteID int64, in Input) error {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("note")
	}
	if err != nil {
		return err
	}
	if note.OwnerID != callerID {
		return domain.Forbidden()
	}
	if err := validateInput(in); err != nil {
		return err
	}
	if err := s.store.UpdateNote(ctx, noteID, in.Title, in.Content, in.Classifications); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("note")
		}
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Remove deletes the note and cascades to its classifications, comments, and
// shares. Owner only.
func (s *Service) Remove(ctx context.Context, callerID, noteID int64) error {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("note")
	}
	if err != nil {
		return err
	}
	if note.OwnerID != callerID {
		return domain.Forbidden()
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("note")
		}
		return fmt.Errorf("remove note: %w", err)
	}
	return nil
}

// ListOwned returns the caller's own notes, updated_at descending with id
// descending as tie-break.
func (s *Service) ListOwned(ctx context.Context, callerID int64) ([]store.NoteSummary, error) {
	return s.store.ListNotesByOwner(ctx, callerID)
}

// Stats summarizes the caller's notes for the user page: total count plus
// per-dimension value counts, missing values coalesced to Unassigned.
type Stats struct {
	Total       int
	ByDimension map[string][]store.DimensionCount
}

func (s *Service) Stats(ctx context.Context, callerID int64) (Stats, error) {
	total, err := s.store.CountNotesByOwner(ctx, callerID)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{Total: total, ByDimension: make(map[string][]store.DimensionCount)}
	for _, dim := range catalog.Dimensions() {
		counts, err := s.store.CountByDimension(ctx, callerID, dim.Name, catalog.Unassigned)
		if err != nil {
			return Stats{}, err
		}
		out.ByDimension[dim.Name] = counts
	}
	return out, nil
}
