package tokenize

import "github.com/prometheus/client_golang/prometheus"

var cacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lensd",
		Subsystem: "tokenize",
		Name:      "cache_total",
		Help:      "Tokenize cache lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheTotal)
}
