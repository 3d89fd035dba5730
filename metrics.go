package mdblog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the content pipeline collectors. HTTP metrics come from the
// echoprometheus middleware registered on the same registry.
type Metrics struct {
	searchQueries *prometheus.CounterVec
	searchResults prometheus.Histogram
	skippedPosts  *prometheus.CounterVec
	renderedPages *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdblog",
			Name:      "search_queries_total",
			Help:      "Search queries by outcome",
		}, []string{"outcome"}),

		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mdblog",
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),

		skippedPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdblog",
			Name:      "posts_skipped_total",
			Help:      "Post files skipped during listing because they could not be read",
		}, []string{"file"}),

		renderedPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mdblog",
			Name:      "pages_rendered_total",
			Help:      "Pages rendered by view",
		}, []string{"view"}),
	}

	reg.MustRegister(
		m.searchQueries, m.searchResults,
		m.skippedPosts, m.renderedPages,
	)

	return m
}

func (m *Metrics) searched(results int) {
	outcome := "hit"
	if results == 0 {
		outcome = "miss"
	}
	m.searchQueries.WithLabelValues(outcome).Inc()
	m.searchResults.Observe(float64(results))
}

func (m *Metrics) searchLimited() {
	m.searchQueries.WithLabelValues("limited").Inc()
}

func (m *Metrics) documentSkipped(name string, _ error) {
	m.skippedPosts.WithLabelValues(name).Inc()
}

func (m *Metrics) rendered(view string) {
	m.renderedPages.WithLabelValues(view).Inc()
}
