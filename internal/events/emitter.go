package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types written during a scan.
const (
	TypeScanStart       = "scan-start"
	TypeFileQueued      = "file-queued"
	TypeFileSkipped     = "file-skipped"
	TypeFinding         = "finding"
	TypeArtifactWritten = "artifact-written"
	TypeScanFinished    = "scan-finished"
	TypeReport          = "report"
)

// Fields holds the structured payload of an event.
type Fields map[string]interface{}

// Event represents a single NDJSON record on the scanner's event stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"runId,omitempty"`
	Message   string    `json:"message,omitempty"`
	Fields    Fields    `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
type Emitter struct {
	writer io.Writer
	runID  string
	mu     sync.Mutex
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w}
}

// NewRunEmitter returns an emitter that stamps every event with runID.
func NewRunEmitter(w io.Writer, runID string) *Emitter {
	return &Emitter{writer: w, runID: runID}
}

// RunID returns the run id stamped on events, if any.
func (e *Emitter) RunID() string {
	return e.runID
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}

// Send is shorthand for Emit with a freshly built event.
func (e *Emitter) Send(eventType, message string, fields Fields) error {
	return e.Emit(Event{Type: eventType, Message: message, Fields: fields})
}
