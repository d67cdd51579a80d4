// Package poller drives the watch loop: observe the record table through a
// Cursor, decode each new row and hand it to a Deliverer.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/blurt-dev/blurt/common"
	"github.com/blurt-dev/blurt/cursor"
	"github.com/blurt-dev/blurt/payload"
	"github.com/blurt-dev/blurt/store"
	"github.com/blurt-dev/blurt/telemetry"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the pause between the end of one poll and the start of the next
const DefaultInterval = 5 * time.Second

// ErrStoreNotFound is returned by Run when the database file is missing
var ErrStoreNotFound = errors.New("notification database not found")

// Store is what the poller needs from the notification database
type Store interface {
	store.Reader
	Exists() bool
	Path() string
}

// Deliverer publishes one notification. Errors are logged and dropped.
type Deliverer interface {
	Deliver(ctx context.Context, n common.Notification) error
	Name() string
}

// Config configures a Poller
type Config struct {
	Store      Store
	Dispatcher Deliverer
	Interval   time.Duration
}

// Summary describes one poll cycle
type Summary struct {
	Change         cursor.Change
	Records        int
	Decoded        int
	DecodeFailures int
	Delivered      int
	DeliveryErrors int
}

// Status is a point-in-time snapshot safe to read from other goroutines
type Status struct {
	Path           string    `json:"path"`
	Sink           string    `json:"sink"`
	Watermark      *int64    `json:"watermark"`
	LastPoll       time.Time `json:"last_poll"`
	LastChange     string    `json:"last_change"`
	Polls          uint64    `json:"polls"`
	RecordsSeen    uint64    `json:"records_seen"`
	DecodeFailures uint64    `json:"decode_failures"`
	Delivered      uint64    `json:"delivered"`
	DeliveryErrors uint64    `json:"delivery_errors"`
	LastError      string    `json:"last_error,omitempty"`
	LastErrorAt    time.Time `json:"last_error_at"`
}

// Poller owns the cursor. PollOnce and Run must not be called concurrently;
// Status may be called from anywhere.
type Poller struct {
	config Config
	cursor *cursor.Cursor
	totals Status
	status atomic.Pointer[Status]
}

// New creates a poller with an unset cursor
func New(config Config) (*Poller, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	p := &Poller{
		config: config,
		cursor: cursor.New(),
		totals: Status{
			Path: config.Store.Path(),
			Sink: config.Dispatcher.Name(),
		},
	}
	p.publishStatus()

	return p, nil
}

// Run polls until ctx is done or the store fails. It returns
// ErrStoreNotFound before polling if the database is missing, the store
// error that ended the loop, or ctx.Err() on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	if !p.config.Store.Exists() {
		return fmt.Errorf("%w: %s", ErrStoreNotFound, p.config.Store.Path())
	}

	log.Info().
		Str("path", p.config.Store.Path()).
		Str("sink", p.config.Dispatcher.Name()).
		Dur("interval", p.config.Interval).
		Msg("Watching notification database")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := p.PollOnce(ctx); err != nil {
			// Cancellation during a query is a shutdown, not a store failure
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		timer.Reset(p.config.Interval)
	}
}

// PollOnce runs a single cycle. Only store errors are returned; decode and
// delivery failures are logged, counted and skipped.
func (p *Poller) PollOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	defer func() {
		telemetry.PollDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	res, err := p.cursor.Poll(ctx, p.config.Store)
	if err != nil {
		telemetry.PollsTotal.With("error").Inc()
		p.recordError(err)
		log.Error().Err(err).Msg("Failed to poll notification database")
		return Summary{}, fmt.Errorf("poll failed: %w", err)
	}

	telemetry.PollsTotal.With(res.Change.String()).Inc()
	watermark, ok := p.cursor.Watermark()
	if ok {
		telemetry.Watermark.Set(float64(watermark))
	}

	switch res.Change {
	case cursor.ChangeInitialized:
		log.Info().Int64("watermark", watermark).Msg("Initialized watermark, existing notifications skipped")
	case cursor.ChangeShrank:
		log.Info().Int64("watermark", watermark).Msg("Notifications removed, watermark reset")
	}

	summary := Summary{Change: res.Change, Records: len(res.Records)}
	telemetry.RecordsSeenTotal.Add(float64(len(res.Records)))

	for _, rec := range res.Records {
		n, err := payload.Decode(rec.Data, rec.ID)
		if err != nil {
			summary.DecodeFailures++
			p.logDecodeFailure(rec.ID, err)
			continue
		}
		summary.Decoded++

		if err := p.config.Dispatcher.Deliver(ctx, n); err != nil {
			summary.DeliveryErrors++
			log.Warn().
				Err(err).
				Int64("row_id", n.ID).
				Str("bundle_id", n.BundleIDOrEmpty()).
				Str("sink", p.config.Dispatcher.Name()).
				Msg("Failed to deliver notification")
			continue
		}
		summary.Delivered++

		log.Debug().
			Int64("row_id", n.ID).
			Str("bundle_id", n.BundleIDOrEmpty()).
			Str("title", n.Title).
			Msg("Delivered notification")
	}

	p.recordSummary(summary)
	return summary, nil
}

// Status returns the latest snapshot
func (p *Poller) Status() Status {
	return *p.status.Load()
}

func (p *Poller) logDecodeFailure(rowID int64, err error) {
	var decodeErr *payload.DecodeError
	if !errors.As(err, &decodeErr) {
		telemetry.DecodeFailuresTotal.With("unknown").Inc()
		log.Warn().Err(err).Int64("row_id", rowID).Msg("Failed to decode notification")
		return
	}

	telemetry.DecodeFailuresTotal.With(decodeErr.Kind.String()).Inc()
	log.Warn().
		Err(err).
		Int64("row_id", rowID).
		Str("kind", decodeErr.Kind.String()).
		Str("payload", decodeErr.Hex()).
		Msg("Failed to decode notification")
}

func (p *Poller) recordSummary(s Summary) {
	p.totals.Polls++
	p.totals.LastPoll = time.Now()
	p.totals.LastChange = s.Change.String()
	p.totals.RecordsSeen += uint64(s.Records)
	p.totals.DecodeFailures += uint64(s.DecodeFailures)
	p.totals.Delivered += uint64(s.Delivered)
	p.totals.DeliveryErrors += uint64(s.DeliveryErrors)
	p.publishStatus()
}

func (p *Poller) recordError(err error) {
	p.totals.LastError = err.Error()
	p.totals.LastErrorAt = time.Now()
	p.publishStatus()
}

// publishStatus copies the totals so readers never share memory with the
// poll goroutine
func (p *Poller) publishStatus() {
	snapshot := p.totals
	if w, ok := p.cursor.Watermark(); ok {
		snapshot.Watermark = &w
	}
	p.status.Store(&snapshot)
}
