package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Reporter receives usage events. Implementations must never block the caller
// or surface errors: reporting is strictly fire-and-forget and callers ignore
// every outcome.
type Reporter interface {
	Event(name string, properties map[string]string)
	Exception(name string, err error)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Event(string, map[string]string) {}

func (Nop) Exception(string, error) {}

// FileReporter appends usage events as JSON lines to a local file.
// All write errors are swallowed.
type FileReporter struct {
	path string
}

func NewFileReporter(path string) *FileReporter {
	return &FileReporter{path: path}
}

// DefaultUsagePath returns $HOME/.addinsso/usage.log, or an empty string when
// the home directory cannot be resolved (callers fall back to Nop).
func DefaultUsagePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".addinsso", "usage.log")
}

type usageRecord struct {
	Time       string            `json:"time"`
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Properties map[string]string `json:"properties,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func (r *FileReporter) Event(name string, properties map[string]string) {
	r.append(usageRecord{
		Time:       time.Now().UTC().Format(time.RFC3339),
		Name:       name,
		Kind:       "event",
		Properties: properties,
	})
}

func (r *FileReporter) Exception(name string, err error) {
	record := usageRecord{
		Time: time.Now().UTC().Format(time.RFC3339),
		Name: name,
		Kind: "exception",
	}
	if err != nil {
		record.Error = err.Error()
	}
	r.append(record)
}

func (r *FileReporter) append(record usageRecord) {
	if r == nil || r.path == "" {
		return
	}
	line, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}
