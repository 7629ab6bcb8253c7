package store

import (
	"context"
	"fmt"

	"github.com/haven-home/haven-core/internal/topology"
)

// UpsertNode records a node discovered on the device bus, updating the
// stored name when the node is already known.
func (s *Store) UpsertNode(ctx context.Context, deviceID string, node topology.Node) error {
	const query = `INSERT INTO nodes (device_id, id, name) VALUES (?, ?, ?)
		ON CONFLICT(device_id, id) DO UPDATE SET name = excluded.name`
	_, err := s.db.ExecContext(ctx, query, deviceID, node.ID, node.Name)
	if err != nil {
		return fmt.Errorf("upserting node %s/%s: %w", deviceID, node.ID, err)
	}
	return nil
}

// UpdateNodeName renames a node. Returns ErrNotFound if the node
// is not recorded.
func (s *Store) UpdateNodeName(ctx context.Context, deviceID, nodeID, name string) error {
	const query = `UPDATE nodes SET name = ? WHERE device_id = ? AND id = ?`
	res, err := s.db.ExecContext(ctx, query, name, deviceID, nodeID)
	if err != nil {
		return fmt.Errorf("renaming node %s/%s: %w", deviceID, nodeID, err)
	}
	return requireAffected(fmt.Sprintf("renaming node %s/%s", deviceID, nodeID), res)
}

// AttachNodeTag associates a tag with a node. Attaching a tag that is
// already attached is a no-op.
func (s *Store) AttachNodeTag(ctx context.Context, deviceID, nodeID, tagID string) error {
	const query = `INSERT INTO node_tags (device_id, node_id, tag_id) VALUES (?, ?, ?)
		ON CONFLICT(device_id, node_id, tag_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, deviceID, nodeID, tagID)
	if err != nil {
		return fmt.Errorf("attaching tag %s to node %s/%s: %w", tagID, deviceID, nodeID, err)
	}
	return nil
}

// DetachNodeTag removes a tag association from a node. Detaching a tag
// that is not attached is a no-op.
func (s *Store) DetachNodeTag(ctx context.Context, deviceID, nodeID, tagID string) error {
	const query = `DELETE FROM node_tags WHERE device_id = ? AND node_id = ? AND tag_id = ?`
	_, err := s.db.ExecContext(ctx, query, deviceID, nodeID, tagID)
	if err != nil {
		return fmt.Errorf("detaching tag %s from node %s/%s: %w", tagID, deviceID, nodeID, err)
	}
	return nil
}

// ListNodes returns all recorded nodes in insertion order, without
// tag associations.
func (s *Store) ListNodes(ctx context.Context) (map[string][]topology.Node, error) {
	const query = `SELECT device_id, id, name FROM nodes ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes := make(map[string][]topology.Node)
	for rows.Next() {
		var n topology.Node
		if err := rows.Scan(&n.DeviceID, &n.ID, &n.Name); err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		nodes[n.DeviceID] = append(nodes[n.DeviceID], n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node rows: %w", err)
	}
	return nodes, nil
}

// nodeTag keys a single node/tag association.
type nodeTag struct {
	DeviceID string
	NodeID   string
	TagID    string
}

// listNodeTags returns every node/tag association.
func (s *Store) listNodeTags(ctx context.Context) ([]nodeTag, error) {
	const query = `SELECT device_id, node_id, tag_id FROM node_tags ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying node tags: %w", err)
	}
	defer rows.Close()

	var assocs []nodeTag
	for rows.Next() {
		var nt nodeTag
		if err := rows.Scan(&nt.DeviceID, &nt.NodeID, &nt.TagID); err != nil {
			return nil, fmt.Errorf("scanning node tag row: %w", err)
		}
		assocs = append(assocs, nt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node tag rows: %w", err)
	}
	return assocs, nil
}
