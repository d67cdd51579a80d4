package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/publisher"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func init() {
	publisher.RegisterSink(cfg.SinkNats, func(config cfg.SinkConfiguration) (publisher.Sink, error) {
		if config.NatsURL == "" {
			return nil, fmt.Errorf("nats sink requires nats_url")
		}
		return NewNatsSink(config.NatsURL, config.Subject)
	})
}

// NatsSink publishes notifications to a JetStream subject
type NatsSink struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string

	streamMu    sync.Mutex
	streamReady bool
}

// NewNatsSink connects to NATS and prepares JetStream publishing on subject
func NewNatsSink(url, subject string) (*NatsSink, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats sink requires a subject")
	}

	nc, err := nats.Connect(url,
		nats.Name("blurt"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NatsSink{nc: nc, js: js, subject: subject}, nil
}

// Publish sends a message to JetStream with the key and content type as headers
func (n *NatsSink) Publish(ctx context.Context, msg publisher.Message) error {
	if err := n.ensureStream(ctx); err != nil {
		return err
	}

	header := nats.Header{}
	header.Set("key", msg.Key)
	if msg.ContentType != "" {
		header.Set("Content-Type", msg.ContentType)
	}

	_, err := n.js.PublishMsg(ctx, &nats.Msg{
		Subject: n.subject,
		Data:    msg.Value,
		Header:  header,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}

	return nil
}

// ensureStream creates the stream on first use; a failure is retried on the
// next publish
func (n *NatsSink) ensureStream(ctx context.Context) error {
	n.streamMu.Lock()
	defer n.streamMu.Unlock()

	if n.streamReady {
		return nil
	}

	streamName := sanitizeStreamName(n.subject)
	_, err := n.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{n.subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", streamName, err)
	}

	n.streamReady = true
	return nil
}

// Close releases resources held by the NatsSink
func (n *NatsSink) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}

// sanitizeStreamName converts a subject to a valid JetStream stream name.
// Stream names can't contain '.', '*', '>' or whitespace.
func sanitizeStreamName(subject string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, subject)
}
