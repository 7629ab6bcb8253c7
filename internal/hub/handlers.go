package hub

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"github.com/haven-home/haven-core/internal/auth"
	"github.com/haven-home/haven-core/internal/observability/metrics"
	"github.com/haven-home/haven-core/internal/statistics"
	"github.com/haven-home/haven-core/internal/store"
	"github.com/haven-home/haven-core/internal/topology"
)

// Default map placement for a freshly added room: a 2x2 cell at the
// grid origin, until the user drags it into place.
const (
	defaultRoomWidth  = 2
	defaultRoomHeight = 2
)

// setState publishes a desired property value to the device bus.
// The response confirms bus acceptance only; device acknowledgement
// arrives later through the ingestion path.
func (r *Router) setState(_ context.Context, params json.RawMessage) (any, error) {
	var p struct {
		DeviceID string `json:"deviceId"`
		NodeID   string `json:"nodeId"`
		Property string `json:"property"`
		Value    any    `json:"value"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Property == "" {
		return nil, errValidation("property is required")
	}
	if _, err := r.graph.GetNode(p.DeviceID, p.NodeID); err != nil {
		return nil, err
	}

	payload, err := formatValue(p.Value)
	if err != nil {
		return nil, err
	}

	topic := r.topics.PropertySet(p.DeviceID, p.NodeID, p.Property)
	if err := r.bus.Publish(topic, payload, 1, true); err != nil {
		metrics.IncBusPublish("error")
		return nil, errBus(err)
	}
	metrics.IncBusPublish("ok")
	return true, nil
}

// formatValue renders a JSON parameter value as an MQTT payload.
// Strings pass through unquoted; everything else uses its JSON form.
func formatValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, errValidation("value is required")
	case string:
		return []byte(val), nil
	case bool:
		return []byte(strconv.FormatBool(val)), nil
	case float64:
		return []byte(strconv.FormatFloat(val, 'f', -1, 64)), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, errValidation("unsupported value: %v", err)
		}
		return b, nil
	}
}

func (r *Router) createTag(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errValidation("tag id is required")
	}

	if err := r.graph.AddTag(topology.Tag{ID: p.ID}); err != nil {
		return nil, err
	}
	if err := r.store.InsertTag(ctx, p.ID); err != nil {
		r.revertGraph(r.graph.DeleteTag(p.ID))
		return nil, err
	}
	return true, nil
}

func (r *Router) toggleTag(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		DeviceID     string `json:"deviceId"`
		NodeID       string `json:"nodeId"`
		TagID        string `json:"tagId"`
		OperationAdd bool   `json:"operationAdd"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	if p.OperationAdd {
		if err := r.graph.AttachTag(p.DeviceID, p.NodeID, p.TagID); err != nil {
			return nil, err
		}
		if err := r.store.AttachNodeTag(ctx, p.DeviceID, p.NodeID, p.TagID); err != nil {
			r.revertGraph(r.graph.DetachTag(p.DeviceID, p.NodeID, p.TagID))
			return nil, err
		}
		return true, nil
	}

	// Detaching an absent association is idempotent end to end: the
	// graph and the store both treat it as a no-op.
	node, err := r.graph.GetNode(p.DeviceID, p.NodeID)
	if err != nil {
		return nil, err
	}
	wasAttached := node.HasTag(p.TagID)

	if err := r.graph.DetachTag(p.DeviceID, p.NodeID, p.TagID); err != nil {
		return nil, err
	}
	if err := r.store.DetachNodeTag(ctx, p.DeviceID, p.NodeID, p.TagID); err != nil {
		if wasAttached {
			r.revertGraph(r.graph.AttachTag(p.DeviceID, p.NodeID, p.TagID))
		}
		return nil, err
	}
	return true, nil
}

// deleteTag removes a tag durably first, then from the graph, so a
// store failure never leaves sessions seeing a tag that will return.
func (r *Router) deleteTag(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		TagID string `json:"tagId"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	if _, err := r.graph.GetTag(p.TagID); err != nil {
		return nil, err
	}
	if err := r.store.DestroyTag(ctx, p.TagID); err != nil {
		return nil, err
	}
	if err := r.graph.DeleteTag(p.TagID); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *Router) addFloor(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Name string `json:"name"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errValidation("floor name is required")
	}

	id := uuid.NewString()
	if err := r.store.InsertFloor(ctx, id, p.Name); err != nil {
		return nil, err
	}
	if err := r.graph.AddFloor(topology.Floor{ID: id, Name: p.Name}); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *Router) changeNodeName(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Name string `json:"name"`
		Node struct {
			ID     string `json:"id"`
			Device struct {
				ID string `json:"id"`
			} `json:"device"`
		} `json:"node"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	deviceID, nodeID := p.Node.Device.ID, p.Node.ID
	node, err := r.graph.GetNode(deviceID, nodeID)
	if err != nil {
		return nil, err
	}
	oldName := node.Name

	if err := r.graph.RenameNode(deviceID, nodeID, p.Name); err != nil {
		return nil, err
	}
	if err := r.store.UpdateNodeName(ctx, deviceID, nodeID, p.Name); err != nil {
		r.revertGraph(r.graph.RenameNode(deviceID, nodeID, oldName))
		return nil, err
	}
	return true, nil
}

// deleteFloor cascades: every room on the floor goes through the full
// deleteRoom sequence before the floor itself is removed.
func (r *Router) deleteFloor(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		FloorID string `json:"floorId"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	floor, err := r.graph.GetFloor(p.FloorID)
	if err != nil {
		return nil, err
	}
	for _, room := range floor.Rooms {
		if err := r.removeRoom(ctx, p.FloorID, room); err != nil {
			return nil, err
		}
	}

	if err := r.store.DestroyFloor(ctx, p.FloorID); err != nil {
		return nil, err
	}
	if err := r.graph.DeleteFloor(p.FloorID); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *Router) deleteRoom(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		FloorID string `json:"floorId"`
		RoomID  string `json:"roomId"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	room, err := r.graph.GetRoom(p.FloorID, p.RoomID)
	if err != nil {
		return nil, err
	}
	if err := r.removeRoom(ctx, p.FloorID, room); err != nil {
		return nil, err
	}
	return true, nil
}

// removeRoom tears down one room: room record, graph room + map entry,
// persisted map, then the room's exclusive tag. The sequence exits on
// the first failure; the tag is destroyed last so a partial failure can
// leave an orphaned tag but never a room referencing a missing one.
func (r *Router) removeRoom(ctx context.Context, floorID string, room topology.Room) error {
	if err := r.store.DestroyRoom(ctx, room.ID); err != nil {
		return err
	}
	if err := r.graph.DeleteRoom(floorID, room.ID); err != nil {
		return err
	}

	floor, err := r.graph.GetFloor(floorID)
	if err != nil {
		return err
	}
	if err := r.store.UpdateFloorMap(ctx, floorID, floor.RoomsMap); err != nil {
		return err
	}

	if err := r.graph.DeleteTag(room.TagID); err != nil {
		return err
	}
	return r.store.DestroyTag(ctx, room.TagID)
}

func (r *Router) addRoom(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Name    string `json:"name"`
		FloorID string `json:"floor_id"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errValidation("room name is required")
	}
	if _, err := r.graph.GetFloor(p.FloorID); err != nil {
		return nil, err
	}

	// Each room owns exactly one synthesized tag.
	tagID := topology.RoomTagPrefix + uuid.NewString()
	if err := r.graph.AddTag(topology.Tag{ID: tagID}); err != nil {
		return nil, err
	}
	if err := r.store.InsertTag(ctx, tagID); err != nil {
		r.revertGraph(r.graph.DeleteTag(tagID))
		return nil, err
	}

	room := topology.Room{ID: uuid.NewString(), FloorID: p.FloorID, Name: p.Name, TagID: tagID}
	if err := r.store.InsertRoom(ctx, room); err != nil {
		r.compensateRoomTag(ctx, tagID)
		return nil, err
	}
	if err := r.graph.AddRoom(p.FloorID, room); err != nil {
		r.compensateRoomTag(ctx, tagID)
		return nil, err
	}
	if err := r.graph.AddMapEntry(p.FloorID, topology.MapEntry{
		Width:  defaultRoomWidth,
		Height: defaultRoomHeight,
		TagID:  tagID,
	}); err != nil {
		return nil, err
	}

	floor, err := r.graph.GetFloor(p.FloorID)
	if err != nil {
		return nil, err
	}
	if err := r.store.UpdateFloorMap(ctx, p.FloorID, floor.RoomsMap); err != nil {
		r.revertGraph(r.graph.DeleteRoom(p.FloorID, room.ID))
		r.compensateRoomTag(ctx, tagID)
		if derr := r.store.DestroyRoom(ctx, room.ID); derr != nil {
			r.logger.Warn("room compensation failed", "room", room.ID, "error", derr)
		}
		return nil, err
	}
	return true, nil
}

func (r *Router) updateMap(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		FloorID string              `json:"floorId"`
		Map     []topology.MapEntry `json:"map"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	floor, err := r.graph.GetFloor(p.FloorID)
	if err != nil {
		return nil, err
	}
	oldMap := floor.RoomsMap

	if err := r.graph.UpdateMap(p.FloorID, p.Map); err != nil {
		return nil, err
	}
	if err := r.store.UpdateFloorMap(ctx, p.FloorID, p.Map); err != nil {
		r.revertGraph(r.graph.UpdateMap(p.FloorID, oldMap))
		return nil, err
	}
	return true, nil
}

// getHomieEsp8266Settings returns the integration blob from config so
// the front end can render firmware provisioning forms.
func (r *Router) getHomieEsp8266Settings(_ context.Context, _ json.RawMessage) (any, error) {
	return r.integrations.HomieESP8266, nil
}

func (r *Router) getStatistics(ctx context.Context, params json.RawMessage) (any, error) {
	var q statistics.Query
	if err := parseParams(params, &q); err != nil {
		return nil, err
	}
	if r.stats == nil {
		return nil, &Error{Code: CodePersistence, Message: "statistics backend unavailable"}
	}
	points, err := r.stats.Collect(ctx, q)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []statistics.Point{}
	}
	return points, nil
}

// saveAutomationScript replaces the process-wide automation definition.
// Last write wins across sessions.
func (r *Router) saveAutomationScript(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		BlocklyXML string `json:"blocklyXml"`
		Script     string `json:"script"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}

	old := r.graph.Automation()
	next := topology.Automation{Script: p.Script, XML: p.BlocklyXML}
	r.graph.SetAutomation(next)

	encoded, err := json.Marshal(next)
	if err != nil {
		r.graph.SetAutomation(old)
		return nil, err
	}
	if err := r.store.SetSetting(ctx, store.SettingAutomation, string(encoded)); err != nil {
		r.graph.SetAutomation(old)
		return nil, err
	}
	return true, nil
}

func (r *Router) updatePassword(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Password string `json:"password"`
	}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Password == "" {
		return nil, errValidation("password is required")
	}

	hashed, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetSetting(ctx, store.SettingPassword, hashed); err != nil {
		return nil, err
	}
	return true, nil
}

// revertGraph logs a failed in-memory rollback. The revert operations
// target state this handler just created, so failure indicates a
// concurrent mutation won the race; the graph stays internally valid.
func (r *Router) revertGraph(err error) {
	if err != nil {
		r.logger.Warn("graph rollback failed", "error", err)
	}
}

// compensateRoomTag undoes a synthesized room tag after a later step in
// addRoom failed: graph first, then best-effort store cleanup.
func (r *Router) compensateRoomTag(ctx context.Context, tagID string) {
	r.revertGraph(r.graph.DeleteTag(tagID))
	if err := r.store.DestroyTag(ctx, tagID); err != nil {
		r.logger.Warn("tag compensation failed", "tag", tagID, "error", err)
	}
}
