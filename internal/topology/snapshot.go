package topology

// Snapshot is the JSON-ready view of the whole graph pushed to every session
// on connect. It is a deep copy; the session may marshal it at leisure
// without holding the graph lock.
type Snapshot struct {
	Devices    []Device   `json:"devices"`
	Tags       []Tag      `json:"tags"`
	Floors     []Floor    `json:"floors"`
	Automation Automation `json:"automation"`
}

// Snapshot captures the current state of the graph under a single read lock,
// so the devices, tags, and floors it contains are mutually consistent.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Devices:    make([]Device, 0, len(g.deviceOrder)),
		Tags:       make([]Tag, 0, len(g.tags)),
		Floors:     make([]Floor, 0, len(g.floorOrder)),
		Automation: g.automation,
	}
	for _, id := range g.deviceOrder {
		snap.Devices = append(snap.Devices, copyDevice(g.devices[id]))
	}
	for _, t := range g.tags {
		snap.Tags = append(snap.Tags, *t)
	}
	for _, id := range g.floorOrder {
		snap.Floors = append(snap.Floors, copyFloor(g.floors[id]))
	}
	return snap
}
