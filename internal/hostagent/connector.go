// ABOUTME: Client-side connector a panel uses to reach the relay.
// ABOUTME: Dials the WebSocket, serves commands, and redials on disconnect.

package hostagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/framegate/framegate/internal/protocol"
)

// ProjectOutcome is what a ProjectCreator reports for a successful creation.
type ProjectOutcome struct {
	ProjectName  string
	ProjectPath  string
	SequenceName string
	PresetUsed   string
}

// ProjectCreator performs the host-application work for one CREATE_PROJECT
// command. Implementations own the whole opaque sequence: safe naming, folder
// resolution, project and sequence creation, preset fallback.
type ProjectCreator interface {
	CreateProject(ctx context.Context, data protocol.ProjectData) (*ProjectOutcome, error)
}

// Connector maintains a panel's connection to the relay. Every creator
// failure is converted into a status:"error" reply; no failure escapes the
// serve loop, so the relay only ever observes the two-shape reply schema.
type Connector struct {
	url      string
	creator  ProjectCreator
	interval time.Duration
	logger   *slog.Logger
}

// NewConnector creates a connector for the relay at url (ws://host:port/ws).
// interval is the redial delay after a failed dial or a dropped connection.
func NewConnector(url string, creator ProjectCreator, interval time.Duration, logger *slog.Logger) *Connector {
	return &Connector{
		url:      url,
		creator:  creator,
		interval: interval,
		logger:   logger,
	}
}

// Run dials the relay and serves commands until ctx is canceled, redialing
// after every disconnect.
func (c *Connector) Run(ctx context.Context) error {
	for {
		if err := c.serveOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("connection lost", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.interval):
		}
	}
}

// serveOnce holds one connection from dial to disconnect.
func (c *Connector) serveOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}
	defer conn.Close()
	c.logger.Info("connected to relay", "url", c.url)

	// Closing the socket on cancellation unblocks the blocking read below.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading command: %w", err)
		}
		c.handleFrame(ctx, conn, data)
	}
}

// handleFrame serves one inbound command. Commands run sequentially, the way
// the single-threaded host scripting environment executes them.
func (c *Connector) handleFrame(ctx context.Context, conn *websocket.Conn, data []byte) {
	var cmd protocol.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.logger.Warn("discarding malformed command", "error", err)
		return
	}

	switch cmd.Action {
	case protocol.ActionPing:
		c.reply(conn, &protocol.Result{RequestID: cmd.RequestID, Status: protocol.StatusPong})

	case protocol.ActionCreateProject:
		c.logger.Info("create-project command received", "request_id", cmd.RequestID)
		c.reply(conn, c.runCreate(ctx, &cmd))

	default:
		c.logger.Warn("unknown action", "action", cmd.Action, "request_id", cmd.RequestID)
	}
}

// runCreate invokes the creator and folds any failure into an error reply.
func (c *Connector) runCreate(ctx context.Context, cmd *protocol.Command) *protocol.Result {
	var data protocol.ProjectData
	if cmd.Data != nil {
		data = *cmd.Data
	}

	out, err := c.creator.CreateProject(ctx, data)
	if err != nil {
		return &protocol.Result{
			RequestID: cmd.RequestID,
			Status:    protocol.StatusError,
			Error:     err.Error(),
		}
	}

	return &protocol.Result{
		RequestID:    cmd.RequestID,
		Status:       protocol.StatusSuccess,
		ProjectName:  out.ProjectName,
		ProjectPath:  out.ProjectPath,
		SequenceName: out.SequenceName,
		PresetUsed:   out.PresetUsed,
	}
}

// reply sends one result frame back through the channel.
func (c *Connector) reply(conn *websocket.Conn, res *protocol.Result) {
	if err := conn.WriteJSON(res); err != nil {
		c.logger.Warn("sending reply", "request_id", res.RequestID, "error", err)
	}
}
