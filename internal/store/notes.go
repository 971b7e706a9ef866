package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertNote writes the note row and its classification set in one
// transaction, so a concurrent reader never sees the note without its tags.
func (s *PostgresStore) InsertNote(ctx context.Context, title, content string, ownerID int64, classifications map[string]string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert note: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO notes (title, content, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, title, content, ownerID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert note: %w", err)
	}

	if err := replaceClassifications(ctx, tx, id, classifications); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert note: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, noteID int64) (Note, error) {
	var item Note
	err := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.title, n.content, n.user_id, u.username, n.created_at, n.updated_at
		FROM notes n
		JOIN users u ON u.id = n.user_id
		WHERE n.id=$1
	`, noteID).Scan(&item.ID, &item.Title, &item.Content, &item.OwnerID, &item.OwnerUsername, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Note{}, err
	}

	classes, err := s.ListClassifications(ctx, []int64{item.ID})
	if err != nil {
		return Note{}, err
	}
	item.Classifications = classes[item.ID]
	if item.Classifications == nil {
		item.Classifications = map[string]string{}
	}
	return item, nil
}

// UpdateNote bumps updated_at and fully replaces the classification set.
// Partial classification updates are not supported: the set is deleted and
// re-inserted wholesale inside the same transaction.
func (s *PostgresStore) UpdateNote(ctx context.Context, noteID int64, title, content string, classifications map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update note: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE notes SET title=$2, content=$3, updated_at=NOW()
		WHERE id=$1
	`, noteID, title, content)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update note rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_classes WHERE note_id=$1`, noteID); err != nil {
		return fmt.Errorf("clear note classes: %w", err)
	}
	if err := replaceClassifications(ctx, tx, noteID, classifications); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update note: %w", err)
	}
	return nil
}

// DeleteNote removes the note and everything it owns in one transaction.
// Children go first, in dependency order: classifications, comments, shares,
// then the note row itself.
func (s *PostgresStore) DeleteNote(ctx context.Context, noteID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete note: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_classes WHERE note_id=$1`, noteID); err != nil {
		return fmt.Errorf("delete note classes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE note_id=$1`, noteID); err != nil {
		return fmt.Errorf("delete note comments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shares WHERE note_id=$1`, noteID); err != nil {
		return fmt.Errorf("delete note shares: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id=$1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete note: %w", err)
	}
	return nil
}

func replaceClassifications(ctx context.Context, tx *sql.Tx, noteID int64, classifications map[string]string) error {
	for dimension, value := range classifications {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO note_classes (note_id, dimension, value)
			VALUES ($1, $2, $3)
		`, noteID, dimension, value); err != nil {
			return fmt.Errorf("insert note class %s: %w", dimension, err)
		}
	}
	return nil
}

// ListClassifications fetches the classification mapping for a set of notes
// in one batch query, one value per dimension per note.
func (s *PostgresStore) ListClassifications(ctx context.Context, noteIDs []int64) (map[int64]map[string]string, error) {
	out := make(map[int64]map[string]string)
	if len(noteIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT note_id, dimension, value
		FROM note_classes
		WHERE note_id = ANY($1)
	`, noteIDs)
	if err != nil {
		return nil, fmt.Errorf("list note classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int64
		var dimension, value string
		if err := rows.Scan(&noteID, &dimension, &value); err != nil {
			return nil, fmt.Errorf("scan note class: %w", err)
		}
		if out[noteID] == nil {
			out[noteID] = make(map[string]string)
		}
		out[noteID][dimension] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note classes: %w", err)
	}
	return out, nil
}

const summaryColumns = `
	n.id, n.title, n.content, n.user_id, u.username, n.updated_at,
	EXISTS(SELECT 1 FROM shares s WHERE s.note_id = n.id AND s.user_id = $1) AS shared_with_viewer,
	EXISTS(SELECT 1 FROM shares s WHERE s.note_id = n.id) AS shared_with_anyone
`

func (s *PostgresStore) ListNotesByOwner(ctx context.Context, ownerID int64) ([]NoteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM notes n
		JOIN users u ON u.id = n.user_id
		WHERE n.user_id = $1
		ORDER BY n.updated_at DESC, n.id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned notes: %w", err)
	}
	return s.collectSummaries(ctx, rows)
}

func (s *PostgresStore) ListAccessibleNotes(ctx context.Context, userID int64) ([]NoteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM notes n
		JOIN users u ON u.id = n.user_id
		WHERE n.user_id = $1
		   OR EXISTS(SELECT 1 FROM shares s WHERE s.note_id = n.id AND s.user_id = $1)
		ORDER BY n.updated_at DESC, n.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accessible notes: %w", err)
	}
	return s.collectSummaries(ctx, rows)
}

// SearchAccessibleNotes filters the accessible set by a case-insensitive
// substring over title or content.
func (s *PostgresStore) SearchAccessibleNotes(ctx context.Context, userID int64, substring string) ([]NoteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM notes n
		JOIN users u ON u.id = n.user_id
		WHERE (n.user_id = $1
		   OR EXISTS(SELECT 1 FROM shares s WHERE s.note_id = n.id AND s.user_id = $1))
		  AND (n.title ILIKE '%' || $2 || '%' OR n.content ILIKE '%' || $2 || '%')
		ORDER BY n.updated_at DESC, n.id DESC
	`, userID, substring)
	if err != nil {
		return nil, fmt.Errorf("search accessible notes: %w", err)
	}
	return s.collectSummaries(ctx, rows)
}

func (s *PostgresStore) collectSummaries(ctx context.Context, rows *sql.Rows) ([]NoteSummary, error) {
	defer rows.Close()

	items := make([]NoteSummary, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var item NoteSummary
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Content,
			&item.OwnerID,
			&item.OwnerUsername,
			&item.UpdatedAt,
			&item.SharedWithViewer,
			&item.SharedWithAnyone,
		); err != nil {
			return nil, fmt.Errorf("scan note summary: %w", err)
		}
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note summaries: %w", err)
	}

	classes, err := s.ListClassifications(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Classifications = classes[items[i].ID]
		if items[i].Classifications == nil {
			items[i].Classifications = map[string]string{}
		}
	}
	return items, nil
}

// InsertShare records a grant; re-sharing is a no-op and reports false.
func (s *PostgresStore) InsertShare(ctx context.Context, noteID, userID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO shares (note_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (note_id, user_id) DO NOTHING
	`, noteID, userID)
	if err != nil {
		return false, fmt.Errorf("insert share: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert share rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteShare revokes a grant; revoking a missing grant is a no-op.
func (s *PostgresStore) DeleteShare(ctx context.Context, noteID, userID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM shares WHERE note_id=$1 AND user_id=$2
	`, noteID, userID)
	if err != nil {
		return false, fmt.Errorf("delete share: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete share rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ShareExists(ctx context.Context, noteID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM shares WHERE note_id=$1 AND user_id=$2)
	`, noteID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check share: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CountNotesByOwner(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE user_id=$1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// CountByDimension groups an owner's notes by their value in one dimension.
// Notes without a value for the dimension group under $3 (the caller passes
// the catalog's Unassigned label); the coalesce happens only here, never in
// a write.
func (s *PostgresStore) CountByDimension(ctx context.Context, ownerID int64, dimension, unassigned string) ([]DimensionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(
		         (SELECT value FROM note_classes WHERE note_id = n.id AND dimension = $2 LIMIT 1),
		         $3) AS value,
		       COUNT(*)::int AS count
		FROM notes n
		WHERE n.user_id = $1
		GROUP BY value
		ORDER BY (value = $3), value
	`, ownerID, dimension, unassigned)
	if err != nil {
		return nil, fmt.Errorf("count by dimension: %w", err)
	}
	defer rows.Close()

	items := make([]DimensionCount, 0)
	for rows.Next() {
		var item DimensionCount
		if err := rows.Scan(&item.Value, &item.Count); err != nil {
			return nil, fmt.Errorf("scan dimension count: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dimension counts: %w", err)
	}
	return items, nil
}
