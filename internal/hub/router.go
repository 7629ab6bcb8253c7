package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haven-home/haven-core/internal/audit"
	"github.com/haven-home/haven-core/internal/infrastructure/config"
	"github.com/haven-home/haven-core/internal/infrastructure/logging"
	"github.com/haven-home/haven-core/internal/infrastructure/mqtt"
	"github.com/haven-home/haven-core/internal/observability/metrics"
	"github.com/haven-home/haven-core/internal/statistics"
	"github.com/haven-home/haven-core/internal/store"
	"github.com/haven-home/haven-core/internal/topology"
)

// Publisher is the slice of the MQTT client the router needs: accept a
// publish and report whether the bus client took it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StatisticsProvider answers historical property queries.
type StatisticsProvider interface {
	Collect(ctx context.Context, q statistics.Query) ([]statistics.Point, error)
}

// handlerFunc executes one command against the shared state.
type handlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Router dispatches session commands to their handlers.
//
// Handlers run on the calling session's goroutine: sequential within a
// session, concurrent across sessions. The graph serializes access
// internally; persistence and bus I/O happen outside its lock.
type Router struct {
	graph        *topology.Graph
	store        *store.Store
	bus          Publisher
	stats        StatisticsProvider // nil when statistics are disabled
	integrations config.IntegrationsConfig
	version      string
	logger       *logging.Logger
	topics       mqtt.Topics
	journal      *audit.Journal // nil disables command journaling

	handlers map[string]handlerFunc
	mutating map[string]bool
}

// NewRouter wires a router over the shared graph, store, and bus.
func NewRouter(
	graph *topology.Graph,
	st *store.Store,
	bus Publisher,
	stats StatisticsProvider,
	integrations config.IntegrationsConfig,
	version string,
	logger *logging.Logger,
	journal *audit.Journal,
) *Router {
	r := &Router{
		graph:        graph,
		store:        st,
		bus:          bus,
		stats:        stats,
		integrations: integrations,
		version:      version,
		logger:       logger,
		journal:      journal,
	}
	r.handlers = map[string]handlerFunc{
		"setState":                r.setState,
		"createTag":               r.createTag,
		"toggleTag":               r.toggleTag,
		"deleteTag":               r.deleteTag,
		"addFloor":                r.addFloor,
		"changeNodeName":          r.changeNodeName,
		"deleteFloor":             r.deleteFloor,
		"deleteRoom":              r.deleteRoom,
		"addRoom":                 r.addRoom,
		"updateMap":               r.updateMap,
		"getHomieEsp8266Settings": r.getHomieEsp8266Settings,
		"getStatistics":           r.getStatistics,
		"saveAutomationScript":    r.saveAutomationScript,
		"updatePassword":          r.updatePassword,
	}
	r.mutating = map[string]bool{
		"setState":             true,
		"createTag":            true,
		"toggleTag":            true,
		"deleteTag":            true,
		"addFloor":             true,
		"changeNodeName":       true,
		"deleteFloor":          true,
		"deleteRoom":           true,
		"addRoom":              true,
		"updateMap":            true,
		"saveAutomationScript": true,
		"updatePassword":       true,
	}
	return r
}

// Dispatch routes one request and always produces a response frame.
func (r *Router) Dispatch(ctx context.Context, req *Request) Response {
	start := time.Now()

	h, ok := r.handlers[req.Method]
	if !ok {
		metrics.ObserveCommand(req.Method, CodeUnknownMethod, time.Since(start))
		r.logger.Warn("unknown command method", "method", req.Method)
		return newErrorResponse(req, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method))
	}

	value, err := h(ctx, req.Parameters)
	if err != nil {
		resp := newErrorResponse(req, err)
		metrics.ObserveCommand(req.Method, resp.Error.Code, time.Since(start))
		r.journalCommand(ctx, req, resp.Error.Code)
		r.logger.Warn("command failed", "method", req.Method, "code", resp.Error.Code, "error", err)
		return resp
	}

	metrics.ObserveCommand(req.Method, "ok", time.Since(start))
	r.journalCommand(ctx, req, "ok")
	r.logger.Debug("command handled", "method", req.Method)
	return newResponse(req, value)
}

// journalCommand records mutating commands best-effort: a journal write
// failure never fails the command it describes.
func (r *Router) journalCommand(ctx context.Context, req *Request, result string) {
	if r.journal == nil || !r.mutating[req.Method] {
		return
	}
	params := req.Parameters
	if req.Method == "updatePassword" {
		params = nil // never persist credentials
	}
	entry := &audit.Entry{Method: req.Method, Result: result, Parameters: params}
	if err := r.journal.Record(ctx, entry); err != nil {
		r.logger.Warn("command journal write failed", "method", req.Method, "error", err)
	}
}

// parseParams decodes request parameters into a typed struct.
func parseParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return errValidation("missing parameters")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errValidation("malformed parameters: %v", err)
	}
	return nil
}
