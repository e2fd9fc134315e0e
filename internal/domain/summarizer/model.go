package summarizer

import (
	"encoding/json"
)

const (
	// DefaultMaxLength is the target summary length in words when the caller omits max_length.
	DefaultMaxLength = 150
	// MaxTextLength bounds the input text in characters (Unicode code points).
	MaxTextLength = 10000

	errorPrefix = "Error generating summary: "
)

// Config carries the model settings used for every summary.
type Config struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Request represents the incoming summarization payload.
type Request struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

// NewRequest returns a Request with defaults applied, ready to be decoded into.
func NewRequest() Request {
	return Request{MaxLength: DefaultMaxLength}
}

// EventType discriminates StreamEvent payloads.
type EventType string

const (
	EventSummaryChunk EventType = "summary_chunk"
	EventError        EventType = "error"
)

// StreamEvent is one framed item of a summary stream. Error events are
// terminal: nothing follows them.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// SummaryChunk wraps a generated fragment.
func SummaryChunk(content string) StreamEvent {
	return StreamEvent{Type: EventSummaryChunk, Content: content}
}

// ErrorEvent converts a provider failure into the terminal event.
func ErrorEvent(err error) StreamEvent {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return StreamEvent{Type: EventError, Content: errorPrefix + msg}
}

// IsTerminal reports whether the event ends the stream.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventError
}

// Frame serializes the event as a server-sent-events data line.
func (e StreamEvent) Frame() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}
