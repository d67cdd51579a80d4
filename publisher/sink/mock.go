package sink

import (
	"context"
	"sync"

	"github.com/blurt-dev/blurt/publisher"
)

// MockSink is a mock implementation of Sink for testing
type MockSink struct {
	Messages   []publisher.Message
	PublishErr error
	Closed     bool
	mu         sync.Mutex
}

// Publish records a message for later inspection in tests
func (m *MockSink) Publish(ctx context.Context, msg publisher.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return m.PublishErr
	}

	m.Messages = append(m.Messages, msg)
	return nil
}

// Close marks the sink closed
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Published returns a copy of the recorded messages
func (m *MockSink) Published() []publisher.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]publisher.Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// SetPublishErr changes the error returned by Publish
func (m *MockSink) SetPublishErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishErr = err
}

// Reset clears all recorded messages
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
