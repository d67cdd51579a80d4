package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/publisher"
	"github.com/klauspost/compress/gzip"
)

// DefaultWebhookTimeout bounds the whole request including reading the response
const DefaultWebhookTimeout = 5 * time.Second

// maxErrorBody caps how much of a failed response ends up in the error
const maxErrorBody = 512

func init() {
	publisher.RegisterSink(cfg.SinkWebhook, func(config cfg.SinkConfiguration) (publisher.Sink, error) {
		return NewWebhookSink(WebhookConfig{
			URL:        config.WebhookURL,
			Timeout:    time.Duration(config.TimeoutMS) * time.Millisecond,
			Gzip:       config.Gzip,
			InstanceID: cfg.Config.InstanceID,
		})
	})
}

// WebhookConfig holds configuration for WebhookSink
type WebhookConfig struct {
	URL        string        // http or https endpoint
	Timeout    time.Duration // Client timeout (default: 5s)
	Gzip       bool          // Compress request bodies
	InstanceID uint64        // Sent as X-Blurt-Instance
	UserAgent  string        // Default: blurt/<version>
}

// WebhookSink POSTs each notification to a fixed URL
type WebhookSink struct {
	url     string
	client  *http.Client
	gzip    bool
	headers http.Header
}

// NewWebhookSink creates a new webhook sink
func NewWebhookSink(config WebhookConfig) (*WebhookSink, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("webhook sink requires a URL")
	}

	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL must be http or https: %s", config.URL)
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultWebhookTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = "blurt/" + cfg.Version
	}

	headers := http.Header{}
	headers.Set("User-Agent", config.UserAgent)
	if config.InstanceID != 0 {
		headers.Set("X-Blurt-Instance", strconv.FormatUint(config.InstanceID, 10))
	}

	return &WebhookSink{
		url:     u.String(),
		client:  &http.Client{Timeout: config.Timeout},
		gzip:    config.Gzip,
		headers: headers,
	}, nil
}

// Publish sends one POST. Any non-2xx status is an error.
func (w *WebhookSink) Publish(ctx context.Context, msg publisher.Message) error {
	body := msg.Value
	if w.gzip {
		compressed, err := gzipBody(msg.Value)
		if err != nil {
			return fmt.Errorf("failed to compress body: %w", err)
		}
		body = compressed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range w.headers {
		req.Header[k] = v
	}
	if msg.ContentType != "" {
		req.Header.Set("Content-Type", msg.ContentType)
	}
	if w.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections
func (w *WebhookSink) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func gzipBody(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
