package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation Prometheus metrics.
var (
	RecommendationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homematch",
			Name:      "recommendation_requests_total",
			Help:      "Total number of recommendation requests",
		},
		[]string{"direction", "mode", "status"},
	)

	RecommendationScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "homematch",
			Name:      "recommendation_scoring_duration_seconds",
			Help:      "Candidate scoring duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"direction", "mode"},
	)

	RecommendationCandidatesScored = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "homematch",
			Name:      "recommendation_candidates_scored",
			Help:      "Number of candidates scored per request",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"direction"},
	)

	RecommendationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homematch",
			Name:      "recommendation_cache_total",
			Help:      "Recommendation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	RecommendationCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "homematch",
			Name:      "recommendation_cache_entries",
			Help:      "Number of entries in the recommendation cache",
		},
	)
)

var recMetricsRegistered bool

// RegisterRecommendationMetrics registers Prometheus recommendation metrics. Must be called once from main.
func RegisterRecommendationMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(RecommendationRequestsTotal)
	prometheus.MustRegister(RecommendationScoringDuration)
	prometheus.MustRegister(RecommendationCandidatesScored)
	prometheus.MustRegister(RecommendationCacheTotal)
	prometheus.MustRegister(RecommendationCacheSize)
	recMetricsRegistered = true
}
