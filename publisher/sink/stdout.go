package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/publisher"
)

func init() {
	publisher.RegisterSink(cfg.SinkStdout, func(config cfg.SinkConfiguration) (publisher.Sink, error) {
		if config.Format != cfg.FormatJSON {
			return nil, fmt.Errorf("stdout sink only supports %s format", cfg.FormatJSON)
		}
		return NewStdoutSink(os.Stdout), nil
	})
}

// StdoutSink writes one JSON document per line. Logs go to stderr, so the
// output stream carries nothing but notifications.
type StdoutSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutSink creates a sink writing to w
func NewStdoutSink(w io.Writer) *StdoutSink {
	return &StdoutSink{w: w}
}

// Publish writes msg.Value followed by a newline
func (s *StdoutSink) Publish(ctx context.Context, msg publisher.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line := make([]byte, 0, len(msg.Value)+1)
	line = append(line, msg.Value...)
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Close is a no-op; the process owns stdout
func (s *StdoutSink) Close() error {
	return nil
}
