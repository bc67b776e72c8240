// Package main provides a keyboard plugin for holdsense.
// It turns hold events into keystrokes, via AppleScript on macOS and
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
	Event        string          `json:"event"`
	HandDistance float64         `json:"handDistance"`
	Config       json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Keystroke is the key sent for one event.
type Keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// Config maps event names to keystrokes.
type Config struct {
	Keys   map[string]Keystroke `json:"keys"`
	DryRun bool                 `json:"dryRun"`
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

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	ks, ok := cfg.Keys[req.Event]
	if !ok {
		// Not mapped: nothing to do.
		writeSuccessResponse(nil)
		return
	}
	if ks.Key == "" {
		writeErrorResponse(fmt.Sprintf("event %s: key is required", req.Event))
		return
	}

	name, args := keystrokeCommand(runtime.GOOS, ks)
	if cfg.DryRun {
		data, _ := json.Marshal(map[string]any{"command": append([]string{name}, args...)})
		writeSuccessResponse(data)
		return
	}

	if err := run(name, args...); err != nil {
		writeErrorResponse(fmt.Sprintf("event %s failed: %v", req.Event, err))
		return
	}

	writeSuccessResponse(nil)
}

// keystrokeCommand returns the command that sends ks on goos.
func keystrokeCommand(goos string, ks Keystroke) (string, []string) {
	if goos == "darwin" {
		return "osascript", []string{"-e", buildKeystrokeScript(ks.Key, ks.Modifiers)}
	}

	combo := []string{}
	for _, mod := range ks.Modifiers {
		if m, ok := xdotoolModifiers[strings.ToLower(mod)]; ok {
			combo = append(combo, m)
		}
	}
	key := ks.Key
	if key == " " {
		key = "space"
	}
	combo = append(combo, key)
	return "xdotool", []string{"key", strings.Join(combo, "+")}
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
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}

	modifierList := strings.Join(appleModifiers, ", ")
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, modifierList)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// run executes a command and returns any error with its output.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
