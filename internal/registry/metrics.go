package registry

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lensd",
			Subsystem: "registry",
			Name:      "loads_total",
			Help:      "Model open attempts by result",
		},
		[]string{"model", "result"},
	)

	loadedModels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lensd",
			Subsystem: "registry",
			Name:      "loaded_models",
			Help:      "Models currently held open",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadedModels)
}
