package hub

import "encoding/json"

// Frame types exchanged with sessions.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Events pushed by the hub.
const (
	EventInfrastructure = "infrastructure"
	EventVersion        = "version"
)

// Request is an inbound command frame. The id is echoed back verbatim
// on the response, so it stays raw JSON rather than assuming a type.
type Request struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id"`
	Method     string          `json:"method"`
	Parameters json.RawMessage `json:"parameters"`
}

// Response answers exactly one request. Either Value or Error is set.
type Response struct {
	Type  string          `json:"type"`
	ID    json.RawMessage `json:"id"`
	Value any             `json:"value,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// Event is an unsolicited push to a session.
type Event struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Value any    `json:"value"`
}

// newResponse builds a success response for the given request.
func newResponse(req *Request, value any) Response {
	return Response{Type: TypeResponse, ID: req.ID, Value: value}
}

// newErrorResponse builds a failure response for the given request.
func newErrorResponse(req *Request, err error) Response {
	return Response{Type: TypeResponse, ID: req.ID, Error: wireError(err)}
}
