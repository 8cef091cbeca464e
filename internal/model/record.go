package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimestampLayout is the fixed UTC, second-precision layout of LogRecord.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// LogRecord is one received request, written as a single JSON Lines entry.
// At most one of Payload and ParseError is set.
type LogRecord struct {
	Timestamp   string            `json:"ts"`
	RemoteAddr  string            `json:"remote_addr"`
	Path        string            `json:"path"`
	ContentType *string           `json:"content_type"` // nil when the request declared none
	Headers     map[string]string `json:"headers"`
	Payload     *Payload          `json:"payload"`
	ParseError  *string           `json:"parse_error"`
}

// MarshalLine serializes the record as one line of JSON without the trailing newline.
func (r LogRecord) MarshalLine() ([]byte, error) {
	return marshal(r)
}

// marshal is json.Marshal without HTML escaping, so bodies are logged as received.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
