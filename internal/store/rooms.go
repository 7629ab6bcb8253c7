package store

import (
	"context"
	"fmt"

	"github.com/haven-home/haven-core/internal/topology"
)

// InsertRoom records a new room on an existing floor. Returns
// ErrConflict if the room id or its tag id is already taken.
func (s *Store) InsertRoom(ctx context.Context, room topology.Room) error {
	const query = `INSERT INTO rooms (id, floor_id, name, tag_id) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, room.ID, room.FloorID, room.Name, room.TagID)
	if err != nil {
		return wrapInsertErr(fmt.Sprintf("inserting room %s", room.ID), err)
	}
	return nil
}

// DestroyRoom removes a room. Returns ErrNotFound if it does not exist.
func (s *Store) DestroyRoom(ctx context.Context, id string) error {
	const query = `DELETE FROM rooms WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	return requireAffected(fmt.Sprintf("deleting room %s", id), res)
}

// ListRooms returns all rooms in insertion order.
func (s *Store) ListRooms(ctx context.Context) ([]topology.Room, error) {
	const query = `SELECT id, floor_id, name, tag_id FROM rooms ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []topology.Room
	for rows.Next() {
		var rm topology.Room
		if err := rows.Scan(&rm.ID, &rm.FloorID, &rm.Name, &rm.TagID); err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}
	return rooms, nil
}
