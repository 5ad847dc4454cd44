package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventResolve EventType = "resolve"
	EventMeta    EventType = "meta"
	EventStale   EventType = "stale"
	EventPrune   EventType = "prune"
	EventWarm    EventType = "warm"
	EventError   EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a level name to an EventLevel, defaulting to info
func ParseLevel(name string) EventLevel {
	level := EventLevel(name)
	if _, ok := levelPriority[level]; ok {
		return level
	}
	return LevelInfo
}

// Event represents a single engine event
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	RunID      string            `json:"run_id,omitempty"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	GroupKey   string            `json:"group_key,omitempty"`
	Identifier string            `json:"identifier,omitempty"`
	Path       string            `json:"path,omitempty"`
	Source     string            `json:"source,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Duration   int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. Every event of one logger
// carries the same run id so interleaved runs can be told apart.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogResolve logs the outcome of resolving one favorite. source is where
// the path came from ("cache", "scan") or "none" when nothing matched.
func (l *EventLogger) LogResolve(groupKey, identifier, path, source string) error {
	level := LevelDebug
	if path == "" {
		level = LevelWarning
	}

	return l.Log(&Event{
		Level:      level,
		Event:      EventResolve,
		GroupKey:   groupKey,
		Identifier: identifier,
		Path:       path,
		Source:     source,
	})
}

// LogMeta logs a metadata load
func (l *EventLogger) LogMeta(path, source string, found bool, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventMeta,
		Path:     path,
		Source:   source,
		Duration: duration.Milliseconds(),
		Error:    errMsg,
		Extra: map[string]string{
			"found": fmt.Sprintf("%t", found),
		},
	})
}

// LogStale logs a cache entry dropped because its file vanished
func (l *EventLogger) LogStale(groupKey, identifier, path string) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventStale,
		GroupKey:   groupKey,
		Identifier: identifier,
		Path:       path,
		Reason:     "file no longer exists",
	})
}

// LogPrune logs a full stale-row sweep
func (l *EventLogger) LogPrune(pathsRemoved, metadataRemoved int) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventPrune,
		Extra: map[string]string{
			"paths_removed":    fmt.Sprintf("%d", pathsRemoved),
			"metadata_removed": fmt.Sprintf("%d", metadataRemoved),
		},
	})
}

// LogWarm logs the totals of a warm run
func (l *EventLogger) LogWarm(resolved, unresolved, extracted int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventWarm,
		Duration: duration.Milliseconds(),
		Extra: map[string]string{
			"resolved":   fmt.Sprintf("%d", resolved),
			"unresolved": fmt.Sprintf("%d", unresolved),
			"extracted":  fmt.Sprintf("%d", extracted),
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the identifier stamped on every event of this logger
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
