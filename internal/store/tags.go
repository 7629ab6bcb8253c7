package store

import (
	"context"
	"fmt"
)

// InsertTag records a new tag. Returns ErrConflict if the id already exists.
func (s *Store) InsertTag(ctx context.Context, id string) error {
	const query = `INSERT INTO tags (id) VALUES (?)`
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return wrapInsertErr(fmt.Sprintf("inserting tag %s", id), err)
	}
	return nil
}

// DestroyTag removes a tag. Node associations are removed by the
// node_tags foreign key cascade. Returns ErrNotFound if the tag
// does not exist.
func (s *Store) DestroyTag(ctx context.Context, id string) error {
	const query = `DELETE FROM tags WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}
	return requireAffected(fmt.Sprintf("deleting tag %s", id), res)
}

// ListTags returns all tag ids in insertion order.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM tags ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tag rows: %w", err)
	}
	return ids, nil
}
