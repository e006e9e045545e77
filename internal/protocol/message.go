// ABOUTME: Wire schema for the JSON-framed panel channel.
// ABOUTME: Defines commands sent to panels and the results panels report back.

package protocol

import (
	"encoding/json"
	"fmt"
)

// Actions the gateway can ask a panel to perform.
const (
	ActionCreateProject = "CREATE_PROJECT"
	ActionPing          = "PING"
)

// Statuses a panel can report in a Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusPong    = "pong"
)

// ProjectData carries the creation parameters of a CREATE_PROJECT command.
// All fields are optional on the HTTP surface; the gateway substitutes
// configured defaults before the command is broadcast.
type ProjectData struct {
	ProjectName  string `json:"projectName,omitempty"`
	SequenceName string `json:"sequenceName,omitempty"`
	PresetName   string `json:"presetName,omitempty"`
	SavePath     string `json:"savePath,omitempty"`
}

// Command is a gateway-to-panel message. RequestID correlates the eventual
// reply; ids are minted by the gateway and start at 1, so a zero id marks a
// message that carries none.
type Command struct {
	RequestID int64        `json:"requestId"`
	Action    string       `json:"action"`
	Data      *ProjectData `json:"data,omitempty"`
}

// Result is a panel-to-gateway reply, correlated by RequestID.
// On StatusSuccess the project fields are populated; on StatusError only
// Error carries meaning.
type Result struct {
	RequestID    int64  `json:"requestId"`
	Status       string `json:"status"`
	ProjectName  string `json:"projectName,omitempty"`
	ProjectPath  string `json:"projectPath,omitempty"`
	SequenceName string `json:"sequenceName,omitempty"`
	PresetUsed   string `json:"presetUsed,omitempty"`
	Error        string `json:"error,omitempty"`
}

// ParseResult decodes a single inbound frame from a panel.
func ParseResult(raw []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding panel message: %w", err)
	}
	return &res, nil
}
