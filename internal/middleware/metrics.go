package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command errors by command name. It is incremented
// from the client hook installed in the cache package.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "whisperwall_redis_errors_total",
	Help: "Total number of Redis command errors by command name",
}, []string{"command"})

// RateLimitRejections counts requests rejected by the sliding-window limiter.
var RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "whisperwall_rate_limit_rejections_total",
	Help: "Total number of requests rejected by the rate limiter, by resource",
}, []string{"resource"})

var (
	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the Prometheus middleware for the given service name.
// The underlying collectors register with the default registry, so the
// instance is created once and shared; repeated calls return it.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = fiberprometheus.New(serviceName)
	})
	return promInstance
}

// MetricsMiddleware returns the Fiber handler that records request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
