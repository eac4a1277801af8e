// Package mirror publishes a copy of every forwarded event batch to the
// message bus so other consumers can follow add-in telemetry without
// querying the collector.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/telhawk-systems/addin-proxy/telemetry/pkg/hec"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "addin.telemetry.events"

// HeaderRequestID carries the proxy request id on mirrored messages.
const HeaderRequestID = "X-Request-ID"

// Message is one outbound bus message.
type Message struct {
	Subject  string
	Data     []byte
	Metadata map[string]string
}

// Publisher sends messages to the bus.
type Publisher interface {
	PublishMsg(ctx context.Context, msg *Message) error
}

// Batch is the mirrored payload.
type Batch struct {
	RequestID   string      `json:"request_id,omitempty"`
	ForwardedAt time.Time   `json:"forwarded_at"`
	Count       int         `json:"count"`
	Events      []hec.Event `json:"events"`
}

type Mirror struct {
	publisher Publisher
	subject   string
	now       func() time.Time
}

func New(publisher Publisher, subject string) *Mirror {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Mirror{
		publisher: publisher,
		subject:   subject,
		now:       time.Now,
	}
}

// Subject returns the subject batches are published on.
func (m *Mirror) Subject() string {
	return m.subject
}

// Publish sends events as a single batch message.
func (m *Mirror) Publish(ctx context.Context, requestID string, events []hec.Event) error {
	data, err := json.Marshal(Batch{
		RequestID:   requestID,
		ForwardedAt: m.now().UTC(),
		Count:       len(events),
		Events:      events,
	})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	msg := &Message{Subject: m.subject, Data: data}
	if requestID != "" {
		msg.Metadata = map[string]string{HeaderRequestID: requestID}
	}

	if err := m.publisher.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", m.subject, err)
	}
	return nil
}
