package lens

import "github.com/prometheus/client_golang/prometheus"

var traceDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "lensd",
		Subsystem: "lens",
		Name:      "trace_duration_seconds",
		Help:      "Duration of one traced engine session per model group",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	},
	[]string{"model"},
)

func init() {
	prometheus.MustRegister(traceDuration)
}
