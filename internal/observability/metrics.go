package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the risk engine.
type Metrics struct {
	// --- Margin engine ---
	MarginCalcsTotal    *prometheus.CounterVec
	MarginCalcErrors    *prometheus.CounterVec
	MarginCalcDuration  *prometheus.HistogramVec
	MarginBreaches      *prometheus.CounterVec
	OraclesInvalidTotal prometheus.Counter
	FuelAccrued         *prometheus.CounterVec

	// --- Ingestion ---
	IngestEventsTotal   *prometheus.CounterVec
	IngestEventsDropped *prometheus.CounterVec
	IngestParseErrors   *prometheus.CounterVec
	NATSPullLatency     *prometheus.HistogramVec

	// --- State caches ---
	AccountsTracked    prometheus.Gauge
	SpotMarketsTracked prometheus.Gauge
	PerpMarketsTracked prometheus.Gauge
	OracleSlot         prometheus.Gauge

	// --- Channel & backpressure ---
	ChannelSize        *prometheus.GaugeVec
	ChannelCapacity    *prometheus.GaugeVec
	ChannelUtilization *prometheus.GaugeVec
	PublishDrops       prometheus.Counter
	SnapshotDrops      prometheus.Counter

	// --- Persistence ---
	PersistSnapshotsWritten prometheus.Counter
	PersistBatchSize        prometheus.Histogram
	PersistBatchDur         prometheus.Histogram
	PersistErrors           *prometheus.CounterVec
	PersistRetry            prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	calcBuckets := []float64{
		0.000005, 0.00001, 0.000025, 0.00005, 0.0001,
		0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	ingestBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Margin engine
		MarginCalcsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_margin_calcs_total",
			Help: "Margin calculations completed",
		}, []string{"margin_type"}),

		MarginCalcErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_margin_calc_errors_total",
			Help: "Margin calculations aborted",
		}, []string{"margin_type", "code"}),

		MarginCalcDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_margin_calc_duration_seconds",
			Help:    "Time for one full margin pass",
			Buckets: calcBuckets,
		}, []string{"margin_type"}),

		MarginBreaches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_margin_breaches_total",
			Help: "Calculations where collateral fell short of the requirement",
		}, []string{"margin_type"}),

		OraclesInvalidTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_oracles_invalid_total",
			Help: "Calculations completed with at least one invalid oracle",
		}),

		FuelAccrued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_fuel_accrued_total",
			Help: "Fuel counter units accrued",
		}, []string{"kind"}),

		// Ingestion
		IngestEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_ingest_events_total",
			Help: "Events consumed from NATS",
		}, []string{"event_type"}),

		IngestEventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_ingest_events_dropped_total",
			Help: "Events dropped (full channel, unknown subject)",
		}, []string{"reason"}),

		IngestParseErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_ingest_parse_errors_total",
			Help: "Events rejected during parsing",
		}, []string{"event_type"}),

		NATSPullLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_nats_pull_latency_seconds",
			Help:    "NATS pull request latency",
			Buckets: ingestBuckets,
		}, []string{"subject"}),

		// State caches
		AccountsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "risk_accounts_tracked",
			Help: "User accounts in the live cache",
		}),

		SpotMarketsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "risk_spot_markets_tracked",
			Help: "Spot markets in the live cache",
		}),

		PerpMarketsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "risk_perp_markets_tracked",
			Help: "Perp markets in the live cache",
		}),

		OracleSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "risk_oracle_slot",
			Help: "Slot of the last oracle snapshot",
		}),

		// Channel & backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "risk_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "risk_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "risk_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_publish_drops_total",
			Help: "Results dropped due to full publish channel",
		}),

		SnapshotDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_snapshot_drops_total",
			Help: "Snapshots dropped due to full persistence channel",
		}),

		// Persistence
		PersistSnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_persist_snapshots_written_total",
			Help: "Margin snapshots written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_persist_batch_size",
			Help:    "Snapshots per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "risk_persist_retry_total",
			Help: "Persistence retries",
		}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
