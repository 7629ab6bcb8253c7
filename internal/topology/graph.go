package topology

import "sync"

// Graph is the authoritative in-memory topology of the installation.
//
// All public methods are thread-safe: a single RWMutex serializes every read
// and mutation, so concurrent sessions see a consistent graph without ad hoc
// per-entity locking. Reads return deep copies; callers can safely hold and
// modify them without affecting the graph.
type Graph struct {
	mu sync.RWMutex

	devices     map[string]*Device
	deviceOrder []string

	tags map[string]*Tag

	floors     map[string]*Floor
	floorOrder []string

	automation Automation
}

// NewGraph creates an empty topology graph.
func NewGraph() *Graph {
	return &Graph{
		devices: make(map[string]*Device),
		tags:    make(map[string]*Tag),
		floors:  make(map[string]*Floor),
	}
}

// =============================================================================
// Lookups
// =============================================================================

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
func (g *Graph) GetDevice(id string) (Device, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	d, ok := g.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return copyDevice(d), nil
}

// GetNode resolves a node two-level: device first, then node within it.
// Both steps independently fail with their own not-found error.
func (g *Graph) GetNode(deviceID, nodeID string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	d, ok := g.devices[deviceID]
	if !ok {
		return Node{}, ErrDeviceNotFound
	}
	n, err := d.GetNode(nodeID)
	if err != nil {
		return Node{}, err
	}
	return copyNode(n), nil
}

// GetTag retrieves a tag by ID.
// Returns ErrTagNotFound if the tag does not exist.
func (g *Graph) GetTag(id string) (Tag, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, ok := g.tags[id]
	if !ok {
		return Tag{}, ErrTagNotFound
	}
	return *t, nil
}

// GetFloor retrieves a floor by ID, including its rooms and rooms map.
// Returns ErrFloorNotFound if the floor does not exist.
func (g *Graph) GetFloor(id string) (Floor, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f, ok := g.floors[id]
	if !ok {
		return Floor{}, ErrFloorNotFound
	}
	return copyFloor(f), nil
}

// GetRoom resolves a room two-level: floor first, then room within it.
func (g *Graph) GetRoom(floorID, roomID string) (Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f, ok := g.floors[floorID]
	if !ok {
		return Room{}, ErrFloorNotFound
	}
	r, err := f.GetRoom(roomID)
	if err != nil {
		return Room{}, err
	}
	return *r, nil
}

// Devices returns all devices in insertion order.
func (g *Graph) Devices() []Device {
	g.mu.RLock()
	defer g.mu.RUnlock()

	devices := make([]Device, 0, len(g.deviceOrder))
	for _, id := range g.deviceOrder {
		devices = append(devices, copyDevice(g.devices[id]))
	}
	return devices
}

// Tags returns all tags. Order is unspecified.
func (g *Graph) Tags() []Tag {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tags := make([]Tag, 0, len(g.tags))
	for _, t := range g.tags {
		tags = append(tags, *t)
	}
	return tags
}

// Floors returns all floors in insertion order.
func (g *Graph) Floors() []Floor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	floors := make([]Floor, 0, len(g.floorOrder))
	for _, id := range g.floorOrder {
		floors = append(floors, copyFloor(g.floors[id]))
	}
	return floors
}

// =============================================================================
// Device mutations (loader / ingestion path)
// =============================================================================

// UpsertDevice adds or replaces a device wholesale. Devices are materialized
// by the out-of-scope discovery path; command handlers never create them.
func (g *Graph) UpsertDevice(d Device) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.devices[d.ID]; !ok {
		g.deviceOrder = append(g.deviceOrder, d.ID)
	}
	stored := copyDevice(&d)
	g.devices[d.ID] = &stored
}

// RenameNode sets a node's display name.
func (g *Graph) RenameNode(deviceID, nodeID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := g.node(deviceID, nodeID)
	if err != nil {
		return err
	}
	n.Name = name
	return nil
}

// =============================================================================
// Tag mutations
// =============================================================================

// AddTag adds a tag to the graph.
// Tag IDs are unique across the whole graph; a colliding ID fails with
// ErrTagExists and leaves the graph untouched.
func (g *Graph) AddTag(t Tag) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tags[t.ID]; ok {
		return ErrTagExists
	}
	g.tags[t.ID] = &t
	return nil
}

// DeleteTag removes a tag and every node association referencing it.
// No node retains a reference to a deleted tag afterwards.
func (g *Graph) DeleteTag(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tags[id]; !ok {
		return ErrTagNotFound
	}
	delete(g.tags, id)

	for _, d := range g.devices {
		for i := range d.Nodes {
			d.Nodes[i].removeTag(id)
		}
	}
	return nil
}

// AttachTag associates a tag with a node. Attaching an already-attached tag
// is a no-op.
func (g *Graph) AttachTag(deviceID, nodeID, tagID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tags[tagID]; !ok {
		return ErrTagNotFound
	}
	n, err := g.node(deviceID, nodeID)
	if err != nil {
		return err
	}
	n.addTag(tagID)
	return nil
}

// DetachTag removes a tag association from a node. Detaching an absent
// association is a no-op, not an error.
func (g *Graph) DetachTag(deviceID, nodeID, tagID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.tags[tagID]; !ok {
		return ErrTagNotFound
	}
	n, err := g.node(deviceID, nodeID)
	if err != nil {
		return err
	}
	n.removeTag(tagID)
	return nil
}

// =============================================================================
// Floor and room mutations
// =============================================================================

// AddFloor adds a floor to the graph.
func (g *Graph) AddFloor(f Floor) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.floors[f.ID]; ok {
		return ErrFloorExists
	}
	stored := copyFloor(&f)
	g.floors[f.ID] = &stored
	g.floorOrder = append(g.floorOrder, f.ID)
	return nil
}

// DeleteFloor removes a floor from the graph. The caller is responsible for
// cascading its rooms and their tags first; this removes only the floor
// itself and whatever rooms remain attached to it in memory.
func (g *Graph) DeleteFloor(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.floors[id]; !ok {
		return ErrFloorNotFound
	}
	delete(g.floors, id)
	for i, fid := range g.floorOrder {
		if fid == id {
			g.floorOrder = append(g.floorOrder[:i], g.floorOrder[i+1:]...)
			break
		}
	}
	return nil
}

// AddRoom appends a room to a floor. The room's map entry is added
// separately via AddMapEntry so the caller controls the mutation sequence.
func (g *Graph) AddRoom(floorID string, r Room) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.floors[floorID]
	if !ok {
		return ErrFloorNotFound
	}
	if _, err := f.GetRoom(r.ID); err == nil {
		return ErrRoomExists
	}
	f.Rooms = append(f.Rooms, r)
	return nil
}

// DeleteRoom removes a room and its map entry from a floor.
// The two collections are updated together, never independently.
func (g *Graph) DeleteRoom(floorID, roomID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.floors[floorID]
	if !ok {
		return ErrFloorNotFound
	}
	for i := range f.Rooms {
		if f.Rooms[i].ID == roomID {
			tagID := f.Rooms[i].TagID
			f.Rooms = append(f.Rooms[:i], f.Rooms[i+1:]...)
			f.deleteMapEntry(tagID)
			return nil
		}
	}
	return ErrRoomNotFound
}

// AddMapEntry appends a layout entry to a floor's rooms map.
func (g *Graph) AddMapEntry(floorID string, e MapEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.floors[floorID]
	if !ok {
		return ErrFloorNotFound
	}
	f.RoomsMap = append(f.RoomsMap, e)
	return nil
}

// UpdateMap replaces a floor's rooms map wholesale with the supplied sequence.
func (g *Graph) UpdateMap(floorID string, entries []MapEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.floors[floorID]
	if !ok {
		return ErrFloorNotFound
	}
	f.RoomsMap = append([]MapEntry(nil), entries...)
	return nil
}

// DeleteMapEntry removes the layout entry keyed by the given tag id.
// Removing an absent entry is a no-op.
func (g *Graph) DeleteMapEntry(floorID, tagID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.floors[floorID]
	if !ok {
		return ErrFloorNotFound
	}
	f.deleteMapEntry(tagID)
	return nil
}

// deleteMapEntry removes the entry keyed by tagID. Caller holds the lock.
func (f *Floor) deleteMapEntry(tagID string) {
	for i := range f.RoomsMap {
		if f.RoomsMap[i].TagID == tagID {
			f.RoomsMap = append(f.RoomsMap[:i], f.RoomsMap[i+1:]...)
			return
		}
	}
}

// =============================================================================
// Automation
// =============================================================================

// SetAutomation replaces the single process-wide automation definition.
// Last write wins.
func (g *Graph) SetAutomation(a Automation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.automation = a
}

// Automation returns the current automation definition.
func (g *Graph) Automation() Automation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.automation
}

// =============================================================================
// Internal helpers
// =============================================================================

// node resolves a mutable node pointer. Caller holds the write lock.
func (g *Graph) node(deviceID, nodeID string) (*Node, error) {
	d, ok := g.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.GetNode(nodeID)
}

// copyDevice returns a deep copy of a device and its nodes.
func copyDevice(d *Device) Device {
	out := Device{ID: d.ID}
	if d.Nodes != nil {
		out.Nodes = make([]Node, len(d.Nodes))
		for i := range d.Nodes {
			out.Nodes[i] = copyNode(&d.Nodes[i])
		}
	}
	return out
}

// copyNode returns a deep copy of a node.
func copyNode(n *Node) Node {
	out := *n
	out.TagIDs = append([]string(nil), n.TagIDs...)
	return out
}

// copyFloor returns a deep copy of a floor, its rooms, and its rooms map.
func copyFloor(f *Floor) Floor {
	out := Floor{ID: f.ID, Name: f.Name}
	out.Rooms = append([]Room(nil), f.Rooms...)
	out.RoomsMap = append([]MapEntry(nil), f.RoomsMap...)
	return out
}
