package publisher

import (
	"context"

	"github.com/blurt-dev/blurt/common"
)

// Message is a transformed notification ready for a sink
type Message struct {
	Key         string // Partition/routing key: bundle ID, or row ID when absent
	ContentType string // MIME type produced by the transformer
	Value       []byte
}

// Sink represents a destination for notifications (stdout, webhook, Kafka, NATS)
type Sink interface {
	// Publish delivers one message. Implementations must honor ctx.
	Publish(ctx context.Context, msg Message) error
	// Close releases any resources held by the sink
	Close() error
}

// Transformer serializes notifications into a wire format
type Transformer interface {
	// Transform converts a notification to bytes for publishing
	Transform(n common.Notification) ([]byte, error)
	// ContentType is the MIME type of Transform's output
	ContentType() string
}

// Filter determines whether a notification should be delivered
type Filter interface {
	// Match returns true if a notification from bundleID should be delivered.
	// An empty bundleID means the payload carried none.
	Match(bundleID string) bool
}
