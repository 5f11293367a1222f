// Package monitoring exposes the Prometheus scrape endpoint for VIGIL-CORE.
//
// Request-level metric vectors live in internal/metrics and are registered via
// promauto; this package contributes build info and the /metrics route.
package monitoring

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupPrometheusMetrics registers build info and mounts the scrape endpoint
// on the default registry.
func SetupPrometheusMetrics(router gin.IRoutes) {
	// Register build info (ignore if already registered)
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vigil_core_build_info",
		Help: "Build information for VIGIL-CORE",
		ConstLabels: prometheus.Labels{
			"version":   "v1.0.0",
			"component": "vigil-core",
		},
	}, func() float64 { return 1 }))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
