package hub

import (
	"encoding/json"
	"testing"
)

func TestResponseWireFormat(t *testing.T) {
	req := &Request{Type: TypeRequest, ID: json.RawMessage(`42`), Method: "createTag"}

	data, err := json.Marshal(newResponse(req, true))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if got := string(data); got != `{"type":"response","id":42,"value":true}` {
		t.Errorf("unexpected success frame: %s", got)
	}

	data, err = json.Marshal(newErrorResponse(req, ErrUnknownMethod))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded struct {
		Type  string `json:"type"`
		ID    int    `json:"id"`
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != TypeResponse || decoded.ID != 42 {
		t.Errorf("unexpected error frame: %s", data)
	}
	if decoded.Error == nil || decoded.Error.Code != CodeUnknownMethod {
		t.Errorf("expected unknown_method code, got %+v", decoded.Error)
	}
}

func TestRequestAcceptsStringIDs(t *testing.T) {
	raw := `{"type":"request","id":"abc-1","method":"setState","parameters":{}}`

	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if string(req.ID) != `"abc-1"` {
		t.Errorf("id should round-trip verbatim, got %s", req.ID)
	}

	data, err := json.Marshal(newResponse(&req, true))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if got := string(data); got != `{"type":"response","id":"abc-1","value":true}` {
		t.Errorf("unexpected frame: %s", got)
	}
}

func TestEventWireFormat(t *testing.T) {
	data, err := json.Marshal(Event{Type: TypeEvent, Event: EventVersion, Value: "1.0.0"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if got := string(data); got != `{"type":"event","event":"version","value":"1.0.0"}` {
		t.Errorf("unexpected event frame: %s", got)
	}
}
