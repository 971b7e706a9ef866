// Package access implements sharing and access control: who may view a note,
// and the accessible-note set per user. Sharing grants read+comment access,
// never write access.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"notedeck/api/internal/domain"
	"notedeck/api/internal/store"
)

// Store defines the storage interface for access control
type Store interface {
	GetNote(ctx context.Context, noteID int64) (store.Note, error)
	GetUserByID(ctx context.Context, userID int64) (store.User, error)
	InsertShare(ctx context.Context, noteID, userID int64) (bool, error)
	DeleteShare(ctx context.Context, noteID, userID int64) (bool, error)
	ShareExists(ctx context.Context, noteID, userID int64) (bool, error)
	ListAccessibleNotes(ctx context.Context, userID int64) ([]store.NoteSummary, error)
	SearchAccessibleNotes(ctx context.Context, userID int64, substring string) ([]store.NoteSummary, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// CanView reports whether userID is the note's owner or holds a grant on it.
// A missing note surfaces as NotFound, not as false.
func (s *Service) CanView(ctx context.Context, noteID, userID int64) (bool, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.NotFound("note")
	}
	if err != nil {
		return false, err
	}
	if note.OwnerID == userID {
		return true, nil
	}
	return s.store.ShareExists(ctx, noteID, userID)
}

// ShareResult reports a grant attempt. AlreadyShared is true when the grant
// existed before the call; the operation is idempotent either way.
type ShareResult struct {
	AlreadyShared bool
}

// Share extends read+comment access on a note to targetID. Only the owner
// may grant, and not to themselves.
func (s *Service) Share(ctx context.Context, granterID, noteID, targetID int64) (ShareResult, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return ShareResult{}, domain.NotFound("note")
	}
	if err != nil {
		return ShareResult{}, err
	}
	if note.OwnerID != granterID {
		return ShareResult{}, domain.Forbidden()
	}
	if targetID == note.OwnerID {
		return ShareResult{}, domain.SelfShareRejected()
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ShareResult{}, domain.NotFound("user")
		}
		return ShareResult{}, err
	}

	inserted, err := s.store.InsertShare(ctx, noteID, targetID)
	if err != nil {
		return ShareResult{}, fmt.Errorf("share note: %w", err)
	}
	return ShareResult{AlreadyShared: !inserted}, nil
}

// Unshare revokes a grant. Only the owner may revoke; revoking a grant that
// does not exist is a no-op.
func (s *Service) Unshare(ctx context.Context, revokerID, noteID, targetID int64) error {
	note, err := s.store.GetNote(ctx, noteID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("note")
	}
	if err != nil {
		return err
	}
	if note.OwnerID != revokerID {
		return domain.Forbidden()
	}
	if _, err := s.store.DeleteShare(ctx, noteID, targetID); err != nil {
		return fmt.Errorf("unshare note: %w", err)
	}
	return nil
}

// AccessibleNotes returns the union of notes userID owns and notes shared
// with them, each flagged shared-with-viewer and shared-with-anyone.
func (s *Service) AccessibleNotes(ctx context.Context, userID int64) ([]store.NoteSummary, error) {
	return s.store.ListAccessibleNotes(ctx, userID)
}

// Search filters the accessible set by case-insensitive substring match on
// title or content. A blank query returns no results.
func (s *Service) Search(ctx context.Context, userID int64, substring string) ([]store.NoteSummary, error) {
	if strings.TrimSpace(substring) == "" {
		return []store.NoteSummary{}, nil
	}
	return s.store.SearchAccessibleNotes(ctx, userID, substring)
}
