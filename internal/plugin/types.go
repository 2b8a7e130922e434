// Package plugin runs external programs bound to translated words.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
	// Bindings maps a translated word to the action it triggers.
	Bindings     map[string]string `json:"bindings,omitempty"`
	Config       json.RawMessage   `json:"config,omitempty"`
	ConfigSchema json.RawMessage   `json:"configSchema,omitempty"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action     string          `json:"action"`
	Word       string          `json:"word"`
	ClassIndex int             `json:"class_index"`
	Confidence float64         `json:"confidence"`
	SessionID  string          `json:"session_id,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// ActionFor returns the action bound to word.
func (p *Plugin) ActionFor(word string) (string, bool) {
	action, ok := p.Manifest.Bindings[word]
	return action, ok && action != ""
}
