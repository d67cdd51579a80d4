package sink

import "github.com/blurt-dev/blurt/publisher"

// Compile-time interface verification
var (
	_ publisher.Sink = (*StdoutSink)(nil)
	_ publisher.Sink = (*WebhookSink)(nil)
	_ publisher.Sink = (*KafkaSink)(nil)
	_ publisher.Sink = (*NatsSink)(nil)
	_ publisher.Sink = (*MockSink)(nil)
)
