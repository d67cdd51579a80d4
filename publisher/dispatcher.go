package publisher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/common"
	"github.com/blurt-dev/blurt/telemetry"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single delivery attempt
const DefaultTimeout = 5 * time.Second

// Delivery results, used as metric labels
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultFiltered = "filtered"
)

// DispatcherConfig configures a Dispatcher
type DispatcherConfig struct {
	Name        string      // Sink name for logs and metrics
	Sink        Sink        // Destination sink
	Transformer Transformer // Notification serializer
	Filter      Filter      // Optional; nil delivers everything
	Timeout     time.Duration
}

// Dispatcher filters, transforms and publishes notifications to one sink
type Dispatcher struct {
	config DispatcherConfig
}

// NewDispatcher creates a dispatcher from already constructed parts
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if config.Transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Dispatcher{config: config}, nil
}

// NewDispatcherFromConfig builds the sink, transformer and filter named by
// the sink configuration using the registered factories
func NewDispatcherFromConfig(config cfg.SinkConfiguration) (*Dispatcher, error) {
	snk, err := createSink(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sink: %w", err)
	}

	// Transformers are stateless, no cleanup needed
	trans, err := createTransformer(config.Format)
	if err != nil {
		snk.Close()
		return nil, fmt.Errorf("failed to create transformer: %w", err)
	}

	filter, err := NewGlobFilter(config.FilterApps)
	if err != nil {
		snk.Close()
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}

	d, err := NewDispatcher(DispatcherConfig{
		Name:        config.Type,
		Sink:        snk,
		Transformer: trans,
		Filter:      filter,
		Timeout:     time.Duration(config.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		snk.Close()
		return nil, err
	}

	log.Info().
		Str("sink", config.Type).
		Str("format", config.Format).
		Int("filter_patterns", len(config.FilterApps)).
		Msg("Notification sink ready")

	return d, nil
}

// Name returns the sink name
func (d *Dispatcher) Name() string {
	return d.config.Name
}

// Deliver makes one attempt to publish n. A filtered notification is not
// an error. The caller decides what to do with a failure; nothing is
// retried here.
func (d *Dispatcher) Deliver(ctx context.Context, n common.Notification) error {
	if d.config.Filter != nil && !d.config.Filter.Match(n.BundleIDOrEmpty()) {
		telemetry.DeliveriesTotal.With(d.config.Name, ResultFiltered).Inc()
		log.Debug().
			Int64("row_id", n.ID).
			Str("bundle_id", n.BundleIDOrEmpty()).
			Msg("Notification filtered")
		return nil
	}

	data, err := d.config.Transformer.Transform(n)
	if err != nil {
		telemetry.DeliveriesTotal.With(d.config.Name, ResultFailed).Inc()
		return fmt.Errorf("failed to transform notification %d: %w", n.ID, err)
	}

	msg := Message{
		Key:         messageKey(n),
		ContentType: d.config.Transformer.ContentType(),
		Value:       data,
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	start := time.Now()
	err = d.config.Sink.Publish(ctx, msg)
	telemetry.DeliveryDurationSeconds.With(d.config.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.DeliveriesTotal.With(d.config.Name, ResultFailed).Inc()
		return fmt.Errorf("failed to publish notification %d to %s: %w", n.ID, d.config.Name, err)
	}

	telemetry.DeliveriesTotal.With(d.config.Name, ResultSuccess).Inc()
	return nil
}

// Close releases the sink
func (d *Dispatcher) Close() error {
	return d.config.Sink.Close()
}

func messageKey(n common.Notification) string {
	if n.BundleID != nil && *n.BundleID != "" {
		return *n.BundleID
	}
	return strconv.FormatInt(n.ID, 10)
}
