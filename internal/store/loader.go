package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haven-home/haven-core/internal/topology"
)

// Load rebuilds the topology graph from the database. Called once at
// startup; afterwards the graph is mutated in memory first and each
// mutation is persisted individually.
func (s *Store) Load(ctx context.Context) (*topology.Graph, error) {
	g := topology.NewGraph()

	tags, err := s.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}
	for _, id := range tags {
		if err := g.AddTag(topology.Tag{ID: id}); err != nil {
			return nil, fmt.Errorf("loading tag %s: %w", id, err)
		}
	}

	nodes, err := s.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}
	assocs, err := s.listNodeTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading node tags: %w", err)
	}
	tagsByNode := make(map[[2]string][]string)
	for _, a := range assocs {
		key := [2]string{a.DeviceID, a.NodeID}
		tagsByNode[key] = append(tagsByNode[key], a.TagID)
	}
	for deviceID, deviceNodes := range nodes {
		d := topology.Device{ID: deviceID, Nodes: deviceNodes}
		for i := range d.Nodes {
			d.Nodes[i].TagIDs = tagsByNode[[2]string{deviceID, d.Nodes[i].ID}]
		}
		g.UpsertDevice(d)
	}

	floors, err := s.ListFloors(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading floors: %w", err)
	}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rooms: %w", err)
	}
	for _, f := range floors {
		if err := g.AddFloor(f); err != nil {
			return nil, fmt.Errorf("loading floor %s: %w", f.ID, err)
		}
	}
	for _, rm := range rooms {
		if err := g.AddRoom(rm.FloorID, rm); err != nil {
			return nil, fmt.Errorf("loading room %s: %w", rm.ID, err)
		}
	}

	raw, err := s.GetSetting(ctx, SettingAutomation)
	switch {
	case errors.Is(err, ErrNotFound):
		// No automation saved yet; the graph starts with an empty one.
	case err != nil:
		return nil, fmt.Errorf("loading automation: %w", err)
	default:
		var a topology.Automation
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decoding automation: %w", err)
		}
		g.SetAutomation(a)
	}

	return g, nil
}
