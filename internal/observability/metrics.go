package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_fixes_accepted_total",
		Help: "Location reports accepted by the ingestion endpoint",
	})
	FixesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_fixes_rejected_total",
		Help: "Location reports rejected by validation",
	})
	PathPointsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_path_points_appended_total",
		Help: "Fixes appended to a recording track",
	})
	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avl_exports_total",
		Help: "Shapefile exports by outcome",
	}, []string{"result"})
	DevicesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avl_devices_expired_total",
		Help: "Devices purged by the stale-device reaper",
	})
	EncodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "avl_shapefile_encode_seconds",
		Help:    "Time spent encoding a shapefile bundle",
		Buckets: prometheus.DefBuckets,
	})
)

func ObserveEncodeLatency(start time.Time) {
	EncodeLatency.Observe(time.Since(start).Seconds())
}

// MetricsHandler exposes the default registry on a fiber route.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
