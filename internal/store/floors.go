package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haven-home/haven-core/internal/topology"
)

// InsertFloor records a new floor with an empty layout map.
// Returns ErrConflict if the id already exists.
func (s *Store) InsertFloor(ctx context.Context, id, name string) error {
	const query = `INSERT INTO floors (id, name) VALUES (?, ?)`
	_, err := s.db.ExecContext(ctx, query, id, name)
	if err != nil {
		return wrapInsertErr(fmt.Sprintf("inserting floor %s", id), err)
	}
	return nil
}

// UpdateFloorMap replaces a floor's layout entries wholesale.
// Returns ErrNotFound if the floor does not exist.
func (s *Store) UpdateFloorMap(ctx context.Context, id string, entries []topology.MapEntry) error {
	if entries == nil {
		entries = []topology.MapEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding rooms map for floor %s: %w", id, err)
	}
	const query = `UPDATE floors SET rooms_map = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, string(b), id)
	if err != nil {
		return fmt.Errorf("updating rooms map for floor %s: %w", id, err)
	}
	return requireAffected(fmt.Sprintf("updating rooms map for floor %s", id), res)
}

// DestroyFloor removes a floor. Its rooms are removed by the rooms
// foreign key cascade. Returns ErrNotFound if the floor does not exist.
func (s *Store) DestroyFloor(ctx context.Context, id string) error {
	const query = `DELETE FROM floors WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting floor %s: %w", id, err)
	}
	return requireAffected(fmt.Sprintf("deleting floor %s", id), res)
}

// ListFloors returns all floors with their layout maps, in insertion
// order. Rooms are not populated; callers join them via ListRooms.
func (s *Store) ListFloors(ctx context.Context) ([]topology.Floor, error) {
	const query = `SELECT id, name, rooms_map FROM floors ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying floors: %w", err)
	}
	defer rows.Close()

	var floors []topology.Floor
	for rows.Next() {
		var f topology.Floor
		var mapJSON string
		if err := rows.Scan(&f.ID, &f.Name, &mapJSON); err != nil {
			return nil, fmt.Errorf("scanning floor row: %w", err)
		}
		if err := json.Unmarshal([]byte(mapJSON), &f.RoomsMap); err != nil {
			return nil, fmt.Errorf("decoding rooms map for floor %s: %w", f.ID, err)
		}
		floors = append(floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating floor rows: %w", err)
	}
	return floors, nil
}
