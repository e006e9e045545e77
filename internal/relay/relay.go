// ABOUTME: WebSocket relay accepting panel connections and dispatching replies.
// ABOUTME: Broadcasts commands to every live panel and routes results by request id.

package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"

	"github.com/framegate/framegate/internal/agent"
	"github.com/framegate/framegate/internal/correlate"
	"github.com/framegate/framegate/internal/protocol"
)

// Relay owns the persistent bidirectional channel to the panels. Inbound
// connections are registered with the agent registry; inbound frames are
// parsed and forwarded to the correlation table; outbound commands are
// broadcast to every live panel.
type Relay struct {
	registry *agent.Registry
	table    *correlate.Table
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a Relay over the given registry and correlation table.
func New(registry *agent.Registry, table *correlate.Table, logger *slog.Logger) *Relay {
	return &Relay{
		registry: registry,
		table:    table,
		upgrader: websocket.Upgrader{
			// Panels connect from the host application, not a browser page.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleWS upgrades an inbound HTTP request to a WebSocket and serves the
// panel until it disconnects. One goroutine per panel; the panel is
// unregistered when the read loop ends.
func (r *Relay) HandleWS(w http.ResponseWriter, req *http.Request) {
	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "remote_addr", req.RemoteAddr, "error", err)
		return
	}

	conn := agent.NewConnection(ws, r.logger)
	r.registry.Register(conn)
	defer func() {
		r.registry.Unregister(conn.ID)
		_ = conn.Close()
	}()

	r.readLoop(conn)
}

// readLoop consumes frames from one panel until the connection drops.
func (r *Relay) readLoop(conn *agent.Connection) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Warn("panel connection dropped", "agent_id", conn.ID, "error", err)
			} else {
				r.logger.Debug("panel closed connection", "agent_id", conn.ID)
			}
			return
		}
		r.dispatch(conn, data)
	}
}

// dispatch handles one inbound frame. Malformed frames are logged and
// dropped; they never terminate the read loop or surface to HTTP callers.
func (r *Relay) dispatch(conn *agent.Connection, data []byte) {
	res, err := protocol.ParseResult(data)
	if err != nil {
		r.logger.Warn("discarding malformed panel message", "agent_id", conn.ID, "error", err)
		return
	}
	if res.RequestID == 0 {
		r.logger.Debug("ignoring panel message without request id", "agent_id", conn.ID, "status", res.Status)
		return
	}

	// Unmatched ids (already resolved, expired, or unknown) are dropped by
	// Resolve itself; the return value is only worth a debug line.
	if !r.table.Resolve(res.RequestID, res) {
		r.logger.Debug("dropping unmatched reply", "agent_id", conn.ID, "request_id", res.RequestID)
	}
}

// Broadcast marshals cmd once and attempts delivery to every live panel.
// A failing panel is closed and unregistered, and its error collected, but
// never blocks delivery to the remaining panels. Returns the number of panels
// the send was attempted on; delivery is not acknowledged beyond the
// application-level reply.
func (r *Relay) Broadcast(cmd *protocol.Command) (int, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return 0, fmt.Errorf("encoding command: %w", err)
	}

	var errs *multierror.Error
	attempted := r.registry.ForEachLive(func(conn *agent.Connection) {
		if sendErr := conn.Send(payload); sendErr != nil {
			errs = multierror.Append(errs, fmt.Errorf("panel %s: %w", conn.ID, sendErr))
			r.registry.Unregister(conn.ID)
			_ = conn.Close()
		}
	})

	return attempted, errs.ErrorOrNil()
}

// Ping broadcasts a liveness probe carrying a fresh request id. Panels answer
// with a pong result; nothing waits on the id, so the replies are dropped as
// unmatched.
func (r *Relay) Ping() (int, error) {
	return r.Broadcast(&protocol.Command{
		RequestID: r.table.NextID(),
		Action:    protocol.ActionPing,
	})
}
