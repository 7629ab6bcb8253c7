package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/haven-home/haven-core/internal/audit"
	"github.com/haven-home/haven-core/internal/hub"
	"github.com/haven-home/haven-core/internal/infrastructure/config"
	"github.com/haven-home/haven-core/internal/infrastructure/logging"
	"github.com/haven-home/haven-core/internal/store"
	"github.com/haven-home/haven-core/internal/topology"
)

// nullBus accepts every publish.
type nullBus struct{}

func (nullBus) Publish(string, []byte, byte, bool) error { return nil }

// setupServer builds a server over a seeded in-memory store.
func setupServer(t *testing.T) *Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
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
			PRIMARY KEY (device_id, node_id, tag_id)
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
			tag_id TEXT NOT NULL UNIQUE
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

	graph := topology.NewGraph()
	graph.UpsertDevice(topology.Device{ID: "d1", Nodes: []topology.Node{
		{ID: "n1", DeviceID: "d1", Name: "Relay"},
	}})

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
	wsCfg := config.WebSocketConfig{
		Path:           "/ws",
		MaxMessageSize: 65536,
		PingInterval:   30,
		PongTimeout:    10,
	}

	journal := audit.NewJournal(db)
	router := hub.NewRouter(graph, store.New(db), nullBus{}, nil, config.IntegrationsConfig{}, "1.2.3", logger, journal)
	h := hub.NewHub(wsCfg, router, graph, "1.2.3", logger)

	srv, err := New(Deps{
		Config:  config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:      wsCfg,
		Logger:  logger,
		Hub:     h,
		Journal: journal,
		Version: "1.2.3",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body.Status != "ok" || body.Version != "1.2.3" {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWebSocketSession(t *testing.T) {
	srv := setupServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	//nolint:errcheck // Test deadline; failures surface as read errors
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Connect-time pushes: infrastructure snapshot, then version.
	var infra struct {
		Type  string `json:"type"`
		Event string `json:"event"`
		Value struct {
			Devices []topology.Device `json:"devices"`
		} `json:"value"`
	}
	if err := conn.ReadJSON(&infra); err != nil {
		t.Fatalf("reading infrastructure event: %v", err)
	}
	if infra.Type != "event" || infra.Event != "infrastructure" {
		t.Fatalf("expected infrastructure event first, got %+v", infra)
	}
	if len(infra.Value.Devices) != 1 || infra.Value.Devices[0].ID != "d1" {
		t.Errorf("snapshot should carry device d1: %+v", infra.Value.Devices)
	}

	var version struct {
		Type  string `json:"type"`
		Event string `json:"event"`
		Value string `json:"value"`
	}
	if err := conn.ReadJSON(&version); err != nil {
		t.Fatalf("reading version event: %v", err)
	}
	if version.Event != "version" || version.Value != "1.2.3" {
		t.Errorf("unexpected version event: %+v", version)
	}

	// Round-trip one command.
	req := map[string]any{
		"type":       "request",
		"id":         1,
		"method":     "createTag",
		"parameters": map[string]any{"id": "lighting"},
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	var response struct {
		Type  string `json:"type"`
		ID    int    `json:"id"`
		Value bool   `json:"value"`
	}
	if err := conn.ReadJSON(&response); err != nil {
		t.Fatalf("reading response: %v", err)
	}
	if response.Type != "response" || response.ID != 1 || !response.Value {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestAuditEndpoint(t *testing.T) {
	srv := setupServer(t)
	ts := httptest.NewServer(srv.buildRouter())
	defer ts.Close()

	entry := &audit.Entry{Method: "createTag", Result: "ok"}
	if err := srv.journal.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	resp, err := http.Get(ts.URL + "/audit?method=createTag")
	if err != nil {
		t.Fatalf("GET /audit failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var page audit.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decoding audit body: %v", err)
	}
	if page.Total != 1 || len(page.Entries) != 1 || page.Entries[0].Method != "createTag" {
		t.Errorf("unexpected audit page: %+v", page)
	}

	bad, err := http.Get(ts.URL + "/audit?limit=abc")
	if err != nil {
		t.Fatalf("GET /audit failed: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", bad.StatusCode)
	}
}
