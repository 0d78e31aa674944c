package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// HTTP metrics
	// ============================================
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ezgg_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ============================================
	// Database metrics
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ezgg_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	// ============================================
	// NATS metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ezgg_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject"},
	)

	NATSPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_nats_publish_failed_total",
			Help: "Total number of NATS publish failures",
		},
		[]string{"subject"},
	)

	// ============================================
	// Upstream client metrics
	// ============================================
	ChainRPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_chain_rpc_errors_total",
			Help: "Total number of chain RPC call failures",
		},
		[]string{"chain", "method"},
	)

	BundlerEstimateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ezgg_bundler_estimate_duration_seconds",
			Help:    "Bundler gas estimation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	ExchangeRateRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_exchange_rate_refresh_total",
			Help: "Total number of exchange rate fetches",
		},
		[]string{"result"},
	)

	// ============================================
	// Business metrics
	// ============================================
	FeeEstimatesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_fee_estimates_computed_total",
			Help: "Total number of fee estimates computed",
		},
		[]string{"transaction_type"},
	)

	TransactionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ezgg_transactions_created_total",
			Help: "Total number of transactions created",
		},
		[]string{"transaction_type"},
	)

	PayLinksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ezgg_pay_links_created_total",
		Help: "Total number of pay link escrows created",
	})
)
