// Package comments implements per-note discussion. Adding requires view
// access to the note; editing and removal are author-only and stay
// author-only no matter what happens to the share afterwards.
package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"notedeck/api/internal/domain"
	"notedeck/api/internal/store"
)

const maxContentLen = 2000

// CommentStore defines the storage interface for comment threads
type CommentStore interface {
	InsertComment(ctx context.Context, noteID, authorID int64, content string) (int64, error)
	GetComment(ctx context.Context, commentID int64) (store.Comment, error)
	UpdateComment(ctx context.Context, commentID int64, content string) error
	DeleteComment(ctx context.Context, commentID int64) error
	ListComments(ctx context.Context, noteID int64) ([]store.Comment, error)
}

// AccessChecker reports whether a user may view a note. Implemented by the
// access service.
type AccessChecker interface {
	CanView(ctx context.Context, noteID, userID int64) (bool, error)
}

type Service struct {
	store  CommentStore
	access AccessChecker
}

func New(store CommentStore, access AccessChecker) *Service {
	return &Service{store: store, access: access}
}

func validateContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", domain.Validation("comment content is required")
	}
	if utf8.RuneCountInString(trimmed) > maxContentLen {
		return "", domain.Validation("comment content must be at most 2000 characters")
	}
	return trimmed, nil
}

// Add posts a comment on a note the author can view.
func (s *Service) Add(ctx context.Context, authorID, noteID int64, content string) (int64, error) {
	trimmed, err := validateContent(content)
	if err != nil {
		return 0, err
	}
	ok, err := s.access.CanView(ctx, noteID, authorID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.Forbidden()
	}
	id, err := s.store.InsertComment(ctx, noteID, authorID, trimmed)
	if err != nil {
		return 0, fmt.Errorf("add comment: %w", err)
	}
	return id, nil
}

// Edit replaces a comment's content. Author only: note ownership does not
// grant edit rights over someone else's comment.
func (s *Service) Edit(ctx context.Context, editorID, commentID int64, content string) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("comment")
	}
	if err != nil {
		return err
	}
	if comment.AuthorID != editorID {
		return domain.Forbidden()
	}
	trimmed, err := validateContent(content)
	if err != nil {
		return err
	}
	if err := s.store.UpdateComment(ctx, commentID, trimmed); err != nil {
		return fmt.Errorf("edit comment: %w", err)
	}
	return nil
}

// Remove deletes a comment. Same author-only rule as Edit.
func (s *Service) Remove(ctx context.Context, removerID, commentID int64) error {
	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("comment")
	}
	if err != nil {
		return err
	}
	if comment.AuthorID != removerID {
		return domain.Forbidden()
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("remove comment: %w", err)
	}
	return nil
}

// List returns a note's comments newest-first by id. The caller must be able
// to view the note.
func (s *Service) List(ctx context.Context, callerID, noteID int64) ([]store.Comment, error) {
	ok, err := s.access.CanView(ctx, noteID, callerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Forbidden()
	}
	return s.store.ListComments(ctx, noteID)
}

// Get fetches a single comment by id. Comments outlive share revocation, so
// direct lookup does not re-check note access.
func (s *Service) Get(ctx context.Context, commentID int64) (store.Comment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Comment{}, domain.NotFound("comment")
	}
	if err != nil {
		return store.Comment{}, err
	}
	return comment, nil
}
