package telemetry

var (
	// DeliveryBuckets spans local writes through a slow webhook hitting its timeout
	DeliveryBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// PollBuckets for a single poll cycle against the local database
	PollBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)

// Poll Metrics
var (
	// PollsTotal counts poll cycles by observed change (empty, initialized, grew, shrank, unchanged, error)
	PollsTotal CounterVec = noopCounterVec{}

	// PollDurationSeconds measures a full poll cycle including decode and delivery
	PollDurationSeconds Histogram = NoopStat{}

	// Watermark tracks the highest ROWID accounted for
	Watermark Gauge = NoopStat{}

	// RecordsSeenTotal counts new records returned by the store
	RecordsSeenTotal Counter = NoopStat{}

	// DecodeFailuresTotal counts undecodable payloads by kind
	DecodeFailuresTotal CounterVec = noopCounterVec{}
)

// Delivery Metrics
var (
	// DeliveriesTotal counts deliveries by sink and result (success, failed, filtered)
	DeliveriesTotal CounterVec = noopCounterVec{}

	// DeliveryDurationSeconds measures a single sink publish by sink
	DeliveryDurationSeconds HistogramVec = noopHistogramVec{}
)

// Store Metrics
var (
	// StoreFileBytes tracks on-disk size of the database and its WAL
	StoreFileBytes GaugeVec = noopGaugeVec{}
)

// InitMetrics binds every metric to the registry.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	PollsTotal = NewCounterVec(
		"polls_total",
		"Poll cycles by observed change",
		[]string{"change"},
	)
	PollDurationSeconds = NewHistogramWithBuckets(
		"poll_duration_seconds",
		"Poll cycle duration in seconds",
		PollBuckets,
	)
	Watermark = NewGauge(
		"watermark",
		"Highest record ROWID accounted for by this process",
	)
	RecordsSeenTotal = NewCounter(
		"records_seen_total",
		"New records returned by the notification store",
	)
	DecodeFailuresTotal = NewCounterVec(
		"decode_failures_total",
		"Payloads that could not be decoded, by kind",
		[]string{"kind"},
	)

	DeliveriesTotal = NewCounterVec(
		"deliveries_total",
		"Notification deliveries by sink and result",
		[]string{"sink", "result"},
	)
	DeliveryDurationSeconds = NewHistogramVec(
		"delivery_duration_seconds",
		"Sink publish duration in seconds",
		[]string{"sink"},
		DeliveryBuckets,
	)

	StoreFileBytes = NewGaugeVec(
		"store_file_bytes",
		"Size of the notification database files",
		[]string{"file"},
	)
}
