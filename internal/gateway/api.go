// ABOUTME: HTTP API handlers for the caller-facing create-project surface.
// ABOUTME: Implements the dispatch/await/render flow around the relay broadcast.

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/framegate/framegate/internal/correlate"
	"github.com/framegate/framegate/internal/protocol"
)

// DefaultProjectName is the literal placeholder substituted when the caller
// supplies no project name. The panel appends its own timestamp suffix.
const DefaultProjectName = "Untitled Project"

// successMessage is the literal message carried by every successful
// create-project response.
const successMessage = "Project created successfully"

// Error strings the HTTP surface reports; callers branch on the success
// boolean, these are for humans.
const (
	errNoAgent         = "no agent connected"
	errTimeout         = "timed out waiting for the editing application"
	errCreationFailed  = "project creation failed"
	errInvalidBody     = "invalid JSON body"
	errBroadcastFailed = "failed to deliver command to any panel"
)

// CreateProjectRequest is the JSON request body for POST /create-project.
// All fields are optional; defaults are substituted before dispatch.
type CreateProjectRequest struct {
	ProjectName  string `json:"projectName"`
	SequenceName string `json:"sequenceName"`
	PresetName   string `json:"presetName"`
	SavePath     string `json:"savePath"`
}

// CreateProjectResponse is the JSON response body for POST /create-project.
// Success is always present; Error is populated exactly when Success is false.
type CreateProjectResponse struct {
	Success      bool   `json:"success"`
	ProjectName  string `json:"projectName,omitempty"`
	ProjectPath  string `json:"projectPath,omitempty"`
	SequenceName string `json:"sequenceName,omitempty"`
	PresetUsed   string `json:"presetUsed,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	ConnectedClients int    `json:"connectedClients"`
	WebsocketPort    int    `json:"websocketPort"`
	HTTPPort         int    `json:"httpPort"`
	DefaultSavePath  string `json:"defaultSavePath"`
	DefaultPreset    string `json:"defaultPreset"`
	DefaultSequence  string `json:"defaultSequence"`
}

// RootResponse is the JSON response for GET /.
type RootResponse struct {
	Service          string            `json:"service"`
	Running          bool              `json:"running"`
	ConnectedClients int               `json:"connectedClients"`
	Defaults         RootDefaults      `json:"defaults"`
	Endpoints        map[string]string `json:"endpoints"`
}

// RootDefaults echoes the configured creation defaults in the root document.
type RootDefaults struct {
	ProjectName string `json:"projectName"`
	Sequence    string `json:"sequence"`
	Preset      string `json:"preset"`
	SavePath    string `json:"savePath"`
}

// handleRoot handles GET / with a service summary and endpoint map.
func (g *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, RootResponse{
		Service:          ServiceName,
		Running:          true,
		ConnectedClients: g.registry.Count(),
		Defaults: RootDefaults{
			ProjectName: DefaultProjectName,
			Sequence:    g.config.Defaults.Sequence,
			Preset:      g.config.Defaults.Preset,
			SavePath:    g.config.Defaults.SavePath,
		},
		Endpoints: map[string]string{
			"status":        "GET /status",
			"createProject": "POST /create-project",
			"websocket":     "ws://" + g.config.Server.WSAddr + "/ws",
		},
	})
}

// handleStatus handles GET /status.
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, StatusResponse{
		ConnectedClients: g.registry.Count(),
		WebsocketPort:    portOf(g.config.Server.WSAddr),
		HTTPPort:         portOf(g.config.Server.HTTPAddr),
		DefaultSavePath:  g.config.Defaults.SavePath,
		DefaultPreset:    g.config.Defaults.Preset,
		DefaultSequence:  g.config.Defaults.Sequence,
	})
}

// handleCreateProject handles POST /create-project.
//
// Per-request state machine: RECEIVED -> DISPATCHED -> {FULFILLED | TIMED_OUT}.
//
//  1. Parse body - all fields optional, empty body allowed
//  2. Fail fast with 503 when no panel is registered (nothing enters the table)
//  3. Mint id, substitute defaults, register waiter, broadcast once
//  4. Await the correlated reply or the reply-timeout
//  5. Render 200/500 from the terminal outcome
//
// There are no retries: one broadcast, one wait window.
func (g *Gateway) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		g.writeJSON(w, http.StatusBadRequest, CreateProjectResponse{Success: false, Error: errInvalidBody})
		return
	}

	if g.registry.Count() == 0 {
		g.writeJSON(w, http.StatusServiceUnavailable, CreateProjectResponse{Success: false, Error: errNoAgent})
		return
	}

	id := g.table.NextID()
	cmd := g.buildCommand(id, req)
	waiter := g.table.Create(id)

	sent, err := g.relay.Broadcast(cmd)
	if err != nil {
		g.logger.Warn("broadcast delivered partially", "request_id", id, "error", err)
	}
	if sent == 0 {
		// Every panel dropped between the count check and the send.
		g.table.Expire(id)
		g.writeJSON(w, http.StatusServiceUnavailable, CreateProjectResponse{Success: false, Error: errBroadcastFailed})
		return
	}

	g.logger.Info("create-project dispatched",
		"request_id", id,
		"panels", sent,
		"project_name", cmd.Data.ProjectName,
	)

	timer := time.NewTimer(g.config.Relay.ReplyTimeout)
	defer timer.Stop()

	select {
	case out := <-waiter.Done():
		g.renderOutcome(w, id, out)

	case <-timer.C:
		if g.table.Expire(id) {
			g.logger.Warn("create-project timed out", "request_id", id)
			g.writeJSON(w, http.StatusInternalServerError, CreateProjectResponse{Success: false, Error: errTimeout})
			return
		}
		// A reply won the race right at the deadline; the outcome is
		// already buffered on the waiter.
		g.renderOutcome(w, id, <-waiter.Done())

	case <-r.Context().Done():
		// Caller went away; expire the entry so a late reply is dropped
		// as unmatched.
		g.table.Expire(id)
		g.logger.Debug("caller disconnected mid-wait", "request_id", id)
	}
}

// buildCommand applies the configured defaults to the caller-supplied fields.
func (g *Gateway) buildCommand(id int64, req CreateProjectRequest) *protocol.Command {
	data := &protocol.ProjectData{
		ProjectName:  req.ProjectName,
		SequenceName: req.SequenceName,
		PresetName:   req.PresetName,
		SavePath:     req.SavePath,
	}
	if data.ProjectName == "" {
		data.ProjectName = DefaultProjectName
	}
	if data.SequenceName == "" {
		data.SequenceName = g.config.Defaults.Sequence
	}
	if data.PresetName == "" {
		data.PresetName = g.config.Defaults.Preset
	}
	if data.SavePath == "" {
		data.SavePath = g.config.Defaults.SavePath
	}

	return &protocol.Command{
		RequestID: id,
		Action:    protocol.ActionCreateProject,
		Data:      data,
	}
}

// renderOutcome converts a terminal waiter outcome into the HTTP response.
func (g *Gateway) renderOutcome(w http.ResponseWriter, id int64, out correlate.Outcome) {
	if out.Err != nil {
		g.logger.Warn("create-project failed", "request_id", id, "error", out.Err)
		g.writeJSON(w, http.StatusInternalServerError, CreateProjectResponse{Success: false, Error: errTimeout})
		return
	}

	res := out.Result
	if res.Status == protocol.StatusSuccess {
		g.logger.Info("create-project fulfilled",
			"request_id", id,
			"project_path", res.ProjectPath,
		)
		g.writeJSON(w, http.StatusOK, CreateProjectResponse{
			Success:      true,
			ProjectName:  res.ProjectName,
			ProjectPath:  res.ProjectPath,
			SequenceName: res.SequenceName,
			PresetUsed:   res.PresetUsed,
			Message:      successMessage,
		})
		return
	}

	// Panel-reported failure: pass the panel's message through verbatim,
	// with a generic fallback when it sent none.
	msg := res.Error
	if msg == "" {
		msg = errCreationFailed
	}
	g.logger.Warn("create-project rejected by panel", "request_id", id, "error", msg)
	g.writeJSON(w, http.StatusInternalServerError, CreateProjectResponse{Success: false, Error: msg})
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("encoding response", "error", err)
	}
}
