package topology

import "strings"

// RoomTagPrefix marks tags that were synthesized to back a room.
// The prefix makes tag provenance (user-created vs room-backed) inspectable
// without a side table: a tag id of the form "room:<uuid>" is exclusively
// owned by exactly one room.
const RoomTagPrefix = "room:"

// Device represents a physical device materialized by the out-of-scope
// discovery path. The core only reads, renames, and tags its nodes.
type Device struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
}

// GetNode returns the node with the given ID, or ErrNodeNotFound.
func (d *Device) GetNode(id string) (*Node, error) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], nil
		}
	}
	return nil, ErrNodeNotFound
}

// Node is a functional unit of a device (e.g. a relay, a sensor channel).
// DeviceID is a non-owning back-reference; the device's node list is the
// sole owner.
type Node struct {
	ID       string   `json:"id"`
	DeviceID string   `json:"deviceId"`
	Name     string   `json:"name"`
	TagIDs   []string `json:"tags"`
}

// HasTag reports whether the node carries the given tag.
func (n *Node) HasTag(tagID string) bool {
	for _, id := range n.TagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}

// addTag attaches a tag id; attaching an already-present tag is a no-op.
func (n *Node) addTag(tagID string) {
	if n.HasTag(tagID) {
		return
	}
	n.TagIDs = append(n.TagIDs, tagID)
}

// removeTag detaches a tag id; detaching an absent tag is a no-op.
func (n *Node) removeTag(tagID string) {
	for i, id := range n.TagIDs {
		if id == tagID {
			n.TagIDs = append(n.TagIDs[:i], n.TagIDs[i+1:]...)
			return
		}
	}
}

// Tag is a labeled capability/category attachable to nodes. Tags created to
// back a room carry the RoomTagPrefix and are exclusively owned by that room.
type Tag struct {
	ID string `json:"id"`
}

// RoomOwned reports whether the tag was synthesized to back a room.
func (t Tag) RoomOwned() bool {
	return strings.HasPrefix(t.ID, RoomTagPrefix)
}

// MapEntry is one cell of a floor's 2-D placement grid, keyed by the room's
// tag id. JSON keys match the persisted rooms_map wire format.
type MapEntry struct {
	Width  int    `json:"w"`
	Height int    `json:"h"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	TagID  string `json:"i"`
}

// Floor groups rooms and describes their placement on a 2-D grid.
// Rooms and RoomsMap are updated together, never independently: the map
// contains exactly one entry per room, keyed by the room's tag id.
type Floor struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Rooms    []Room     `json:"rooms"`
	RoomsMap []MapEntry `json:"roomsMap"`
}

// GetRoom returns the room with the given ID, or ErrRoomNotFound.
func (f *Floor) GetRoom(id string) (*Room, error) {
	for i := range f.Rooms {
		if f.Rooms[i].ID == id {
			return &f.Rooms[i], nil
		}
	}
	return nil, ErrRoomNotFound
}

// Room is a physical space on a floor. FloorID is a non-owning
// back-reference; TagID names the room's exclusive tag.
type Room struct {
	ID      string `json:"id"`
	FloorID string `json:"floorId"`
	Name    string `json:"name"`
	TagID   string `json:"tagId"`
}

// Automation is the single process-wide automation definition: the script
// text plus its visual-editor source. Last write wins.
type Automation struct {
	Script string `json:"script"`
	XML    string `json:"xml"`
}
