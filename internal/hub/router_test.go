package hub

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haven-home/haven-core/internal/audit"
	"github.com/haven-home/haven-core/internal/auth"
	"github.com/haven-home/haven-core/internal/infrastructure/config"
	"github.com/haven-home/haven-core/internal/infrastructure/logging"
	"github.com/haven-home/haven-core/internal/statistics"
	"github.com/haven-home/haven-core/internal/store"
	"github.com/haven-home/haven-core/internal/topology"
)

// publishRecord captures one fake bus publish.
type publishRecord struct {
	Topic    string
	Payload  string
	QoS      byte
	Retained bool
}

// fakeBus records publishes and can be told to fail.
type fakeBus struct {
	published []publishRecord
	err       error
}

func (f *fakeBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishRecord{
		Topic:    topic,
		Payload:  string(payload),
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

// fakeStats returns a canned series.
type fakeStats struct {
	points []statistics.Point
	err    error
	got    statistics.Query
}

func (f *fakeStats) Collect(_ context.Context, q statistics.Query) ([]statistics.Point, error) {
	f.got = q
	return f.points, f.err
}

// testEnv bundles the router with its collaborators for inspection.
type testEnv struct {
	router *Router
	graph  *topology.Graph
	store  *store.Store
	db     *sql.DB
	bus    *fakeBus
	stats  *fakeStats
}

// setupRouter builds a router over an in-memory database seeded with one
// device (d1) carrying nodes n1 and n2, and a floor f1.
func setupRouter(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		PRAGMA foreign_keys = ON;
		CREATE TABLE nodes (
			device_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (device_id, id)
		) STRICT;
		CREATE TABLE tags (id TEXT PRIMARY KEY) STRICT;
		CREATE TABLE node_tags (
			device_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			PRIMARY KEY (device_id, node_id, tag_id),
			FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
		) STRICT;
		CREATE TABLE floors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			rooms_map TEXT NOT NULL DEFAULT '[]'
		) STRICT;
		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			floor_id TEXT NOT NULL,
			name TEXT NOT NULL,
			tag_id TEXT NOT NULL UNIQUE,
			FOREIGN KEY (floor_id) REFERENCES floors(id) ON DELETE CASCADE
		) STRICT;
		CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT NOT NULL) STRICT;
		CREATE TABLE command_log (
			id TEXT PRIMARY KEY,
			method TEXT NOT NULL,
			result TEXT NOT NULL,
			parameters TEXT,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	ctx := context.Background()

	graph := topology.NewGraph()
	graph.UpsertDevice(topology.Device{ID: "d1", Nodes: []topology.Node{
		{ID: "n1", DeviceID: "d1", Name: "Relay"},
		{ID: "n2", DeviceID: "d1", Name: "Dimmer"},
	}})
	for _, nodeID := range []string{"n1", "n2"} {
		node, err := graph.GetNode("d1", nodeID)
		if err != nil {
			t.Fatalf("seeding node %s: %v", nodeID, err)
		}
		if err := st.UpsertNode(ctx, "d1", node); err != nil {
			t.Fatalf("seeding node %s: %v", nodeID, err)
		}
	}
	if err := st.InsertFloor(ctx, "f1", "Ground Floor"); err != nil {
		t.Fatalf("seeding floor: %v", err)
	}
	if err := graph.AddFloor(topology.Floor{ID: "f1", Name: "Ground Floor"}); err != nil {
		t.Fatalf("seeding floor: %v", err)
	}

	bus := &fakeBus{}
	stats := &fakeStats{}
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
	integrations := config.IntegrationsConfig{
		HomieESP8266: map[string]any{"wifi_ssid": "haven"},
	}

	router := NewRouter(graph, st, bus, stats, integrations, "1.0.0", logger, audit.NewJournal(db))

	return &testEnv{router: router, graph: graph, store: st, db: db, bus: bus, stats: stats}
}

// dispatch runs one request through the router.
func dispatch(t *testing.T, env *testEnv, method string, params any) Response {
	t.Helper()

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("marshaling parameters: %v", err)
		}
		raw = b
	}
	return env.router.Dispatch(context.Background(), &Request{
		Type:       TypeRequest,
		ID:         json.RawMessage(`7`),
		Method:     method,
		Parameters: raw,
	})
}

// wantTrue asserts a success response with value true.
func wantTrue(t *testing.T, resp Response) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}
	if v, ok := resp.Value.(bool); !ok || !v {
		t.Fatalf("expected value true, got %#v", resp.Value)
	}
}

// wantCode asserts an error response with the given code.
func wantCode(t *testing.T, resp Response, code string) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected %s error, got success %#v", code, resp.Value)
	}
	if resp.Error.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, resp.Error.Code, resp.Error.Message)
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "rebootEverything", map[string]any{})
	wantCode(t, resp, CodeUnknownMethod)
	if string(resp.ID) != "7" {
		t.Errorf("response should echo the request id, got %s", resp.ID)
	}
}

func TestSetState(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "setState", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "property": "power", "value": "true",
	})
	wantTrue(t, resp)

	if len(env.bus.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(env.bus.published))
	}
	pub := env.bus.published[0]
	if pub.Topic != "homie/d1/n1/power/set" {
		t.Errorf("unexpected topic %q", pub.Topic)
	}
	if pub.Payload != "true" {
		t.Errorf("unexpected payload %q", pub.Payload)
	}
	if pub.QoS != 1 || !pub.Retained {
		t.Errorf("expected qos 1 retained, got qos=%d retained=%v", pub.QoS, pub.Retained)
	}
}

func TestSetState_NumericValue(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "setState", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "property": "brightness", "value": 75,
	})
	wantTrue(t, resp)

	if got := env.bus.published[0].Payload; got != "75" {
		t.Errorf("expected payload 75, got %q", got)
	}
}

func TestSetState_UnknownNode(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "setState", map[string]any{
		"deviceId": "d1", "nodeId": "nope", "property": "power", "value": "on",
	})
	wantCode(t, resp, CodeNotFound)
	if len(env.bus.published) != 0 {
		t.Error("nothing should reach the bus for an unknown node")
	}
}

func TestSetState_BusFailure(t *testing.T) {
	env := setupRouter(t)
	env.bus.err = errors.New("broker gone")

	resp := dispatch(t, env, "setState", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "property": "power", "value": "on",
	})
	wantCode(t, resp, CodeBus)
}

func TestCreateTag(t *testing.T) {
	env := setupRouter(t)

	wantTrue(t, dispatch(t, env, "createTag", map[string]any{"id": "lighting"}))

	if _, err := env.graph.GetTag("lighting"); err != nil {
		t.Errorf("tag missing from graph: %v", err)
	}
	ids, err := env.store.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "lighting" {
		t.Errorf("tag missing from store: %v", ids)
	}

	wantCode(t, dispatch(t, env, "createTag", map[string]any{"id": "lighting"}), CodeConflict)
}

func TestCreateTag_PersistFailureRollsBack(t *testing.T) {
	env := setupRouter(t)
	env.db.Close()

	resp := dispatch(t, env, "createTag", map[string]any{"id": "lighting"})
	wantCode(t, resp, CodePersistence)

	if _, err := env.graph.GetTag("lighting"); !errors.Is(err, topology.ErrTagNotFound) {
		t.Errorf("graph mutation should be reverted on persist failure, got %v", err)
	}
}

func TestToggleTag(t *testing.T) {
	env := setupRouter(t)
	wantTrue(t, dispatch(t, env, "createTag", map[string]any{"id": "lighting"}))

	wantTrue(t, dispatch(t, env, "toggleTag", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "tagId": "lighting", "operationAdd": true,
	}))
	node, err := env.graph.GetNode("d1", "n1")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if !node.HasTag("lighting") {
		t.Error("expected tag attached after toggle add")
	}

	wantTrue(t, dispatch(t, env, "toggleTag", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "tagId": "lighting", "operationAdd": false,
	}))
	node, _ = env.graph.GetNode("d1", "n1")
	if node.HasTag("lighting") {
		t.Error("expected tag detached after toggle remove")
	}
}

func TestToggleTag_DetachAbsentIsIdempotent(t *testing.T) {
	env := setupRouter(t)
	wantTrue(t, dispatch(t, env, "createTag", map[string]any{"id": "lighting"}))

	// n2 never had the tag; detaching it still succeeds.
	wantTrue(t, dispatch(t, env, "toggleTag", map[string]any{
		"deviceId": "d1", "nodeId": "n2", "tagId": "lighting", "operationAdd": false,
	}))
}

func TestToggleTag_UnknownTag(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "toggleTag", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "tagId": "ghost", "operationAdd": true,
	})
	wantCode(t, resp, CodeNotFound)
}

func TestDeleteTag_CleansAssociations(t *testing.T) {
	env := setupRouter(t)
	wantTrue(t, dispatch(t, env, "createTag", map[string]any{"id": "lighting"}))
	wantTrue(t, dispatch(t, env, "toggleTag", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "tagId": "lighting", "operationAdd": true,
	}))

	wantTrue(t, dispatch(t, env, "deleteTag", map[string]any{"tagId": "lighting"}))

	if _, err := env.graph.GetTag("lighting"); !errors.Is(err, topology.ErrTagNotFound) {
		t.Errorf("expected tag gone from graph, got %v", err)
	}
	node, _ := env.graph.GetNode("d1", "n1")
	if node.HasTag("lighting") {
		t.Error("expected node association removed with tag")
	}

	wantCode(t, dispatch(t, env, "deleteTag", map[string]any{"tagId": "lighting"}), CodeNotFound)
}

func TestChangeNodeName(t *testing.T) {
	env := setupRouter(t)

	wantTrue(t, dispatch(t, env, "changeNodeName", map[string]any{
		"name": "Hallway Light",
		"node": map[string]any{"id": "n1", "device": map[string]any{"id": "d1"}},
	}))

	node, err := env.graph.GetNode("d1", "n1")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node.Name != "Hallway Light" {
		t.Errorf("expected renamed node, got %q", node.Name)
	}

	nodes, err := env.store.ListNodes(context.Background())
	if err != nil {
		t.Fatalf("ListNodes failed: %v", err)
	}
	for _, n := range nodes["d1"] {
		if n.ID == "n1" && n.Name != "Hallway Light" {
			t.Errorf("rename not persisted, got %q", n.Name)
		}
	}
}

func TestAddFloorAndRoomLifecycle(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()

	wantTrue(t, dispatch(t, env, "addRoom", map[string]any{
		"name": "Kitchen", "floor_id": "f1",
	}))

	floor, err := env.graph.GetFloor("f1")
	if err != nil {
		t.Fatalf("GetFloor failed: %v", err)
	}
	if len(floor.Rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(floor.Rooms))
	}
	room := floor.Rooms[0]
	if !strings.HasPrefix(room.TagID, topology.RoomTagPrefix) {
		t.Errorf("room tag should carry the room prefix, got %q", room.TagID)
	}
	tag, err := env.graph.GetTag(room.TagID)
	if err != nil {
		t.Fatalf("room tag missing from graph: %v", err)
	}
	if !tag.RoomOwned() {
		t.Error("room tag should report as room-owned")
	}

	// Map entry congruent with the room, default 2x2 at origin.
	if len(floor.RoomsMap) != 1 {
		t.Fatalf("expected 1 map entry, got %d", len(floor.RoomsMap))
	}
	entry := floor.RoomsMap[0]
	if entry.TagID != room.TagID || entry.Width != 2 || entry.Height != 2 || entry.X != 0 || entry.Y != 0 {
		t.Errorf("unexpected default map entry: %+v", entry)
	}

	// Persisted state matches.
	storedFloors, err := env.store.ListFloors(ctx)
	if err != nil {
		t.Fatalf("ListFloors failed: %v", err)
	}
	if len(storedFloors) != 1 || len(storedFloors[0].RoomsMap) != 1 {
		t.Fatalf("map not persisted: %+v", storedFloors)
	}

	// Delete the room; room, map entry, and tag all go.
	wantTrue(t, dispatch(t, env, "deleteRoom", map[string]any{
		"floorId": "f1", "roomId": room.ID,
	}))

	floor, _ = env.graph.GetFloor("f1")
	if len(floor.Rooms) != 0 || len(floor.RoomsMap) != 0 {
		t.Errorf("expected empty floor after deleteRoom, got %+v", floor)
	}
	if _, err := env.graph.GetTag(room.TagID); !errors.Is(err, topology.ErrTagNotFound) {
		t.Errorf("expected room tag deleted, got %v", err)
	}
	storedTags, err := env.store.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(storedTags) != 0 {
		t.Errorf("expected room tag removed from store, got %v", storedTags)
	}
}

func TestAddRoom_UnknownFloor(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "addRoom", map[string]any{
		"name": "Kitchen", "floor_id": "missing",
	})
	wantCode(t, resp, CodeNotFound)

	// No orphan tag may survive the failed attempt.
	tags, err := env.store.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("expected no tags after failed addRoom, got %v", tags)
	}
}

func TestDeleteFloor_CascadesRoomsAndTags(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()

	wantTrue(t, dispatch(t, env, "addRoom", map[string]any{"name": "Kitchen", "floor_id": "f1"}))
	wantTrue(t, dispatch(t, env, "addRoom", map[string]any{"name": "Lounge", "floor_id": "f1"}))

	wantTrue(t, dispatch(t, env, "deleteFloor", map[string]any{"floorId": "f1"}))

	if _, err := env.graph.GetFloor("f1"); !errors.Is(err, topology.ErrFloorNotFound) {
		t.Errorf("expected floor gone, got %v", err)
	}
	tags, err := env.store.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("expected room tags cascaded, got %v", tags)
	}
	rooms, err := env.store.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected rooms cascaded, got %v", rooms)
	}
}

func TestUpdateMap(t *testing.T) {
	env := setupRouter(t)
	wantTrue(t, dispatch(t, env, "addRoom", map[string]any{"name": "Kitchen", "floor_id": "f1"}))

	floor, _ := env.graph.GetFloor("f1")
	tagID := floor.Rooms[0].TagID

	wantTrue(t, dispatch(t, env, "updateMap", map[string]any{
		"floorId": "f1",
		"map":     []map[string]any{{"w": 3, "h": 4, "x": 5, "y": 6, "i": tagID}},
	}))

	floor, _ = env.graph.GetFloor("f1")
	if len(floor.RoomsMap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(floor.RoomsMap))
	}
	e := floor.RoomsMap[0]
	if e.Width != 3 || e.Height != 4 || e.X != 5 || e.Y != 6 || e.TagID != tagID {
		t.Errorf("map not replaced wholesale: %+v", e)
	}

	storedFloors, err := env.store.ListFloors(context.Background())
	if err != nil {
		t.Fatalf("ListFloors failed: %v", err)
	}
	if got := storedFloors[0].RoomsMap[0]; got != e {
		t.Errorf("persisted map diverges from graph: %+v vs %+v", got, e)
	}
}

func TestGetHomieEsp8266Settings(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "getHomieEsp8266Settings", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	blob, ok := resp.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected settings map, got %#v", resp.Value)
	}
	if blob["wifi_ssid"] != "haven" {
		t.Errorf("unexpected settings blob: %v", blob)
	}
}

func TestGetStatistics(t *testing.T) {
	env := setupRouter(t)
	env.stats.points = []statistics.Point{{Value: 21.5}}

	resp := dispatch(t, env, "getStatistics", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "propertyId": "temperature",
		"type": "mean", "granularity": "1h", "range": "24h",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if env.stats.got.DeviceID != "d1" || env.stats.got.Type != "mean" {
		t.Errorf("query not forwarded: %+v", env.stats.got)
	}
}

func TestGetStatistics_InvalidQuery(t *testing.T) {
	env := setupRouter(t)
	env.stats.err = statistics.ErrInvalidQuery

	resp := dispatch(t, env, "getStatistics", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "propertyId": "temperature",
		"type": "median", "granularity": "1h", "range": "24h",
	})
	wantCode(t, resp, CodeValidation)
}

func TestSaveAutomationScript(t *testing.T) {
	env := setupRouter(t)

	wantTrue(t, dispatch(t, env, "saveAutomationScript", map[string]any{
		"blocklyXml": "<xml/>", "script": "turnOn('d1')",
	}))

	a := env.graph.Automation()
	if a.Script != "turnOn('d1')" || a.XML != "<xml/>" {
		t.Errorf("automation not applied: %+v", a)
	}

	raw, err := env.store.GetSetting(context.Background(), store.SettingAutomation)
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	var persisted topology.Automation
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		t.Fatalf("decoding persisted automation: %v", err)
	}
	if persisted != a {
		t.Errorf("persisted automation diverges: %+v vs %+v", persisted, a)
	}

	// Last write wins.
	wantTrue(t, dispatch(t, env, "saveAutomationScript", map[string]any{
		"blocklyXml": "<xml2/>", "script": "turnOff('d1')",
	}))
	if got := env.graph.Automation().Script; got != "turnOff('d1')" {
		t.Errorf("expected last write to win, got %q", got)
	}
}

func TestUpdatePassword(t *testing.T) {
	env := setupRouter(t)

	wantTrue(t, dispatch(t, env, "updatePassword", map[string]any{"password": "hunter2"}))

	hash, err := env.store.GetSetting(context.Background(), store.SettingPassword)
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	ok, err := auth.VerifyPassword("hunter2", hash)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("persisted hash should verify the password")
	}

	wantCode(t, dispatch(t, env, "updatePassword", map[string]any{"password": ""}), CodeValidation)
}

func TestDispatch_MissingParameters(t *testing.T) {
	env := setupRouter(t)

	resp := dispatch(t, env, "createTag", nil)
	wantCode(t, resp, CodeValidation)
}

func TestDispatch_JournalsMutatingCommands(t *testing.T) {
	env := setupRouter(t)
	ctx := context.Background()

	wantTrue(t, dispatch(t, env, "createTag", map[string]any{"id": "scene:night"}))
	wantCode(t, dispatch(t, env, "toggleTag", map[string]any{
		"deviceId": "d1", "nodeId": "n1", "tagId": "nope", "operationAdd": true,
	}), CodeNotFound)
	wantTrue(t, dispatch(t, env, "updatePassword", map[string]any{"password": "hunter2"}))

	journal := audit.NewJournal(env.db)
	page, err := journal.List(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected 3 journal entries, got %d", page.Total)
	}

	byMethod := make(map[string]audit.Entry)
	for _, e := range page.Entries {
		byMethod[e.Method] = e
	}
	if e := byMethod["createTag"]; e.Result != "ok" || !strings.Contains(string(e.Parameters), "scene:night") {
		t.Errorf("unexpected createTag entry: %+v", e)
	}
	if e := byMethod["toggleTag"]; e.Result != CodeNotFound {
		t.Errorf("expected toggleTag result %q, got %q", CodeNotFound, e.Result)
	}
	if e := byMethod["updatePassword"]; len(e.Parameters) != 0 {
		t.Errorf("updatePassword parameters must not be journaled, got %s", e.Parameters)
	}

	// Read-only commands stay out of the journal.
	dispatch(t, env, "getHomieEsp8266Settings", map[string]any{})
	page, err = journal.List(ctx, audit.Filter{Method: "getHomieEsp8266Settings"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("read-only command should not be journaled, got %d entries", page.Total)
	}
}
