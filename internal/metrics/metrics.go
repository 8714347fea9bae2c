package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/subflo/subflo/pkg/logger"
)

// TrackerMetrics counts the domain events this service cares about
type TrackerMetrics interface {
	IncSubscriptionCreated(platform string)
	IncSubscriptionCanceled()
	IncSubscriptionConflict()
	IncEmailIngested()
	IncEmailParsed()
	IncChartRendered(chart string)
}

type trackerMetrics struct {
	log                   *logger.Logger
	subscriptionsCreated  *prometheus.CounterVec
	subscriptionsCanceled prometheus.Counter
	subscriptionConflicts prometheus.Counter
	emailsIngested        prometheus.Counter
	emailsParsed          prometheus.Counter
	chartsRendered        *prometheus.CounterVec
}

// NewTrackerMetrics registers the service counters on the given registry
func NewTrackerMetrics(registry *prometheus.Registry, log *logger.Logger) TrackerMetrics {
	subscriptionsCreated := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_created_total",
			Help: "The total number of subscriptions created",
		},
		[]string{"platform"},
	)

	subscriptionsCanceled := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_canceled_total",
			Help: "The total number of subscriptions marked canceled",
		},
	)

	subscriptionConflicts := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_conflicts_total",
			Help: "The total number of creations rejected as duplicates",
		},
	)

	emailsIngested := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "emails_ingested_total",
			Help: "The total number of email messages stored",
		},
	)

	emailsParsed := promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "emails_parsed_total",
			Help: "The total number of email messages with parsing output attached",
		},
	)

	chartsRendered := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "charts_rendered_total",
			Help: "The total number of chart images rendered",
		},
		[]string{"chart"},
	)

	return &trackerMetrics{
		log:                   log,
		subscriptionsCreated:  subscriptionsCreated,
		subscriptionsCanceled: subscriptionsCanceled,
		subscriptionConflicts: subscriptionConflicts,
		emailsIngested:        emailsIngested,
		emailsParsed:          emailsParsed,
		chartsRendered:        chartsRendered,
	}
}

// IncSubscriptionCreated increments the created counter for a platform
func (m *trackerMetrics) IncSubscriptionCreated(platform string) {
	m.subscriptionsCreated.WithLabelValues(platform).Inc()
}

// IncSubscriptionCanceled increments the canceled counter
func (m *trackerMetrics) IncSubscriptionCanceled() {
	m.subscriptionsCanceled.Inc()
}

// IncSubscriptionConflict increments the duplicate-rejection counter
func (m *trackerMetrics) IncSubscriptionConflict() {
	m.subscriptionConflicts.Inc()
}

// IncEmailIngested increments the stored-message counter
func (m *trackerMetrics) IncEmailIngested() {
	m.emailsIngested.Inc()
}

// IncEmailParsed increments the parsed-message counter
func (m *trackerMetrics) IncEmailParsed() {
	m.emailsParsed.Inc()
}

// IncChartRendered increments the rendered counter for a chart kind
func (m *trackerMetrics) IncChartRendered(chart string) {
	m.chartsRendered.WithLabelValues(chart).Inc()
}

// NopMetrics returns a metrics implementation that counts nothing, for tests
func NopMetrics() TrackerMetrics {
	return nopMetrics{}
}

type nopMetrics struct{}

func (nopMetrics) IncSubscriptionCreated(string) {}
func (nopMetrics) IncSubscriptionCanceled()      {}
func (nopMetrics) IncSubscriptionConflict()      {}
func (nopMetrics) IncEmailIngested()             {}
func (nopMetrics) IncEmailParsed()               {}
func (nopMetrics) IncChartRendered(string)       {}
