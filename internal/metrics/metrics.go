package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "savethesquare_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "savethesquare_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"route"})
	DonationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "savethesquare_donations_total",
		Help: "Donations persisted, by source",
	}, []string{"source"})
	SquaresDonatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "savethesquare_squares_donated_total",
		Help: "Square meters persisted as donated",
	})
	DonationWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "savethesquare_donation_write_failures_total",
		Help: "Donation batches rejected by the backend",
	})
	DonationReadFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "savethesquare_donation_read_fallback_total",
		Help: "Donation reads served from the cached snapshot",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "savethesquare_snapshot_cache_hits_total",
		Help: "Snapshot cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "savethesquare_snapshot_cache_misses_total",
		Help: "Snapshot cache misses",
	})
	CheckoutSessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "savethesquare_checkout_sessions_total",
		Help: "Checkout sessions by result",
	}, []string{"result"})
	WebhookEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "savethesquare_webhook_events_total",
		Help: "Webhook events by type and result",
	}, []string{"type", "result"})
	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "savethesquare_confirmation_emails_total",
		Help: "Confirmation emails by result (sent, preview, failed)",
	}, []string{"result"})
	SelectionTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "savethesquare_selection_toggles_total",
		Help: "Square clicks by result",
	}, []string{"result"})
	RasterizeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "savethesquare_rasterize_duration_ms",
		Help:    "Text rasterization duration in milliseconds",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
	})
	RasterizedCells = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "savethesquare_rasterized_cells",
		Help:    "Cells produced per text rasterization",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "savethesquare_selection_sessions",
		Help: "Open selection sessions",
	})
	LiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "savethesquare_live_connections",
		Help: "Open websocket connections",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(DonationsTotal)
	prometheus.MustRegister(SquaresDonatedTotal)
	prometheus.MustRegister(DonationWriteFailuresTotal)
	prometheus.MustRegister(DonationReadFallbackTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CheckoutSessionsTotal)
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(EmailsTotal)
	prometheus.MustRegister(SelectionTogglesTotal)
	prometheus.MustRegister(RasterizeDurationMs)
	prometheus.MustRegister(RasterizedCells)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(LiveConnections)
}

// Handler exposes the registered metrics on /metrics
func Handler() http.Handler { return promhttp.Handler() }
