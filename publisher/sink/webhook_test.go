package sink

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/publisher"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method  string
	headers http.Header
	body    []byte
}

type webhookRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	delay    time.Duration
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.requests = append(r.requests, capturedRequest{method: req.Method, headers: req.Header.Clone(), body: body})
	status, delay := r.status, r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, "nope")
}

func (r *webhookRecorder) captured() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]capturedRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

const notificationJSON = `{"id":2,"title":"New","subtitle":null,"body":"","date":0,"bundle_id":"com.test.app"}`

func jsonMessage() publisher.Message {
	return publisher.Message{
		Key:         "com.test.app",
		ContentType: "application/json",
		Value:       []byte(notificationJSON),
	}
}

func TestWebhookSinkPostsOnce(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	snk, err := NewWebhookSink(WebhookConfig{URL: srv.URL + "/hook", InstanceID: 99})
	require.NoError(t, err)
	defer snk.Close()

	require.NoError(t, snk.Publish(context.Background(), jsonMessage()))

	reqs := rec.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "application/json", reqs[0].headers.Get("Content-Type"))
	assert.Equal(t, "blurt/"+cfg.Version, reqs[0].headers.Get("User-Agent"))
	assert.Equal(t, "99", reqs[0].headers.Get("X-Blurt-Instance"))
	assert.Empty(t, reqs[0].headers.Get("Content-Encoding"))
	assert.JSONEq(t, notificationJSON, string(reqs[0].body))
}

func TestWebhookSinkNon2xxIsError(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	snk, err := NewWebhookSink(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	err = snk.Publish(context.Background(), jsonMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "nope")
	assert.Len(t, rec.captured(), 1, "no retry")
}

func TestWebhookSinkAccepts2xx(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusAccepted}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	snk, err := NewWebhookSink(WebhookConfig{URL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, snk.Publish(context.Background(), jsonMessage()))
}

func TestWebhookSinkTimeout(t *testing.T) {
	rec := &webhookRecorder{delay: 2 * time.Second}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	snk, err := NewWebhookSink(WebhookConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = snk.Publish(context.Background(), jsonMessage())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWebhookSinkConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	snk, err := NewWebhookSink(WebhookConfig{URL: url})
	require.NoError(t, err)

	assert.Error(t, snk.Publish(context.Background(), jsonMessage()))
}

func TestWebhookSinkGzip(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	snk, err := NewWebhookSink(WebhookConfig{URL: srv.URL, Gzip: true})
	require.NoError(t, err)

	require.NoError(t, snk.Publish(context.Background(), jsonMessage()))

	reqs := rec.captured()
	require.Len(t, reqs, 1)
	assert.Equal(t, "gzip", reqs[0].headers.Get("Content-Encoding"))

	zr, err := gzip.NewReader(bytes.NewReader(reqs[0].body))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, notificationJSON, string(plain))
}

func TestNewWebhookSinkValidation(t *testing.T) {
	_, err := NewWebhookSink(WebhookConfig{})
	assert.Error(t, err)

	_, err = NewWebhookSink(WebhookConfig{URL: "ftp://example.com/hook"})
	assert.ErrorContains(t, err, "http or https")

	snk, err := NewWebhookSink(WebhookConfig{URL: "https://example.com/hook"})
	require.NoError(t, err)
	assert.Equal(t, DefaultWebhookTimeout, snk.client.Timeout)
	assert.Empty(t, snk.headers.Get("X-Blurt-Instance"))
}

func TestWebhookSinkThroughDispatcher(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	d, err := publisher.NewDispatcherFromConfig(cfg.SinkConfiguration{
		Type:       cfg.SinkWebhook,
		Format:     cfg.FormatJSON,
		WebhookURL: srv.URL,
		TimeoutMS:  1000,
	})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Deliver(context.Background(), testNotification()))

	reqs := rec.captured()
	require.Len(t, reqs, 1)
	assert.True(t, strings.HasPrefix(reqs[0].headers.Get("User-Agent"), "blurt/"))
	assert.JSONEq(t, notificationJSON, string(reqs[0].body))
}
