// Package hec holds the HTTP Event Collector wire format spoken to the
// enterprise log collector.
package hec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// EventPath is the collector's event ingestion endpoint.
const EventPath = "/services/collector/event"

// Event is one canonical collector event. Time is epoch seconds; metadata
// fields are left out of the encoding when empty.
type Event struct {
	Time       int64          `json:"time"`
	Host       string         `json:"host,omitempty"`
	Source     string         `json:"source,omitempty"`
	SourceType string         `json:"sourcetype,omitempty"`
	Index      string         `json:"index,omitempty"`
	Event      any            `json:"event"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Response is the collector's acknowledgement body.
type Response struct {
	Text  string `json:"text"`
	Code  int    `json:"code"`
	AckID *int64 `json:"ackId,omitempty"`
}

// ParseResponse decodes a collector acknowledgement. ok is false when the
// body is not a collector response.
func ParseResponse(body []byte) (resp Response, ok bool) {
	if err := json.Unmarshal(body, &resp); err != nil {
		return Response{}, false
	}
	return resp, resp.Text != ""
}

// EncodeBatch serializes events the way the collector accepts batches:
// concatenated JSON objects, one per line.
func EncodeBatch(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return nil, fmt.Errorf("failed to encode event %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// EventURL returns the event endpoint for a collector base URL. A URL that
// already names the endpoint is returned unchanged.
func EventURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid collector url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid collector url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid collector url: missing host")
	}

	path := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(path, EventPath) {
		path += EventPath
	}
	u.Path = path
	return u.String(), nil
}

// AuthorizationHeader is the header value carrying a collector token.
func AuthorizationHeader(token string) string {
	return "Splunk " + token
}

var (
	ErrInvalidEvent = &Error{Code: 6, Text: "Invalid data format"}
	ErrNoData       = &Error{Code: 5, Text: "No data"}
)

// Error is a collector error code and its text.
type Error struct {
	Code int
	Text string
}

func (e *Error) Error() string {
	return e.Text
}

// ValidateEvent reports ErrInvalidEvent for an event the collector would
// refuse: one without an event body.
func ValidateEvent(ev Event) error {
	if ev.Event == nil {
		return ErrInvalidEvent
	}
	return nil
}
