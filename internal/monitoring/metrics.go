package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommitsTotal counts outermost EndUpdate calls that ran a commit.
	CommitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackgraph_commits_total",
		Help: "Total committed transactions",
	})

	// CommitDuration tracks the wall time of a commit, feature fan-out
	// included.
	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trackgraph_commit_duration_seconds",
		Help:    "Commit duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	})

	// Tracks is the track count after the last repartition.
	Tracks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trackgraph_tracks",
		Help: "Number of tracks after the last repartition",
	})

	// Spots is the vertex count after the last commit.
	Spots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trackgraph_spots",
		Help: "Number of spots after the last commit",
	})

	// FeatureFailures counts feature calculator failures by unit
	// ("frame" or "track").
	FeatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackgraph_feature_failures_total",
		Help: "Feature calculator failures by unit",
	}, []string{"unit"})

	// EventsTotal counts dispatched model change events by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackgraph_events_total",
		Help: "Model change events dispatched, by kind",
	}, []string{"kind"})

	// UnbalancedUpdates counts EndUpdate calls made with no open
	// transaction.
	UnbalancedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackgraph_unbalanced_updates_total",
		Help: "EndUpdate calls without a matching BeginUpdate",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
