// Package main provides a keyboard plugin. It types translated words or
// sends a configured shortcut for them, via AppleScript on macOS and
// xdotool elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Word       string          `json:"word"`
	ClassIndex int             `json:"class_index"`
	Confidence float64         `json:"confidence"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Shortcut is a key with modifiers.
type Shortcut struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// Config maps words to the shortcut sent for them.
type Config struct {
	Shortcuts map[string]Shortcut `json:"shortcuts"`
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// xdotoolModifiers maps modifier names to xdotool key names.
var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if err := handle(req); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

func handle(req Request) error {
	switch req.Action {
	case "type":
		if req.Word == "" {
			return fmt.Errorf("word is required")
		}
		return run(typeCommand(runtime.GOOS, req.Word+" "))
	case "shortcut":
		var cfg Config
		if len(req.Config) > 0 {
			if err := json.Unmarshal(req.Config, &cfg); err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
		}
		s, ok := cfg.Shortcuts[req.Word]
		if !ok || s.Key == "" {
			return fmt.Errorf("no shortcut configured for %q", req.Word)
		}
		return run(shortcutCommand(runtime.GOOS, s))
	default:
		return fmt.Errorf("unknown action: %s", req.Action)
	}
}

// typeCommand returns the command typing text.
func typeCommand(goos, text string) []string {
	if goos == "darwin" {
		return []string{"osascript", "-e", fmt.Sprintf(`tell application "System Events" to keystroke %q`, text)}
	}
	return []string{"xdotool", "type", "--", text}
}

// shortcutCommand returns the command sending s.
func shortcutCommand(goos string, s Shortcut) []string {
	if goos == "darwin" {
		return []string{"osascript", "-e", buildKeystrokeScript(s.Key, s.Modifiers)}
	}

	var keys []string
	for _, mod := range s.Modifiers {
		if m, ok := xdotoolModifiers[strings.ToLower(mod)]; ok {
			keys = append(keys, m)
		}
	}
	keys = append(keys, s.Key)
	return []string{"xdotool", "key", strings.Join(keys, "+")}
}

// buildKeystrokeScript generates an AppleScript for the given key and modifiers.
func buildKeystrokeScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke %q`, key)
	}

	modifierList := strings.Join(appleModifiers, ", ")
	return fmt.Sprintf(`tell application "System Events" to keystroke %q using {%s}`, key, modifierList)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// run executes argv and returns any error with its output.
func run(argv []string) error {
	output, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
