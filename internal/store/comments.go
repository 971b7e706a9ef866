package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) InsertComment(ctx context.Context, noteID, authorID int64, content string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (note_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, noteID, authorID, content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID int64) (Comment, error) {
	var item Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.note_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.id=$1
	`, commentID).Scan(&item.ID, &item.NoteID, &item.AuthorID, &item.Author, &item.Content, &item.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, commentID int64, content string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content=$2 WHERE id=$1
	`, commentID, content)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, noteID int64) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.note_id, c.user_id, u.username, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.note_id=$1
		ORDER BY c.id DESC
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.NoteID, &item.AuthorID, &item.Author, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}
