package middleware

import (
	"context"
	"strconv"
	"time"

	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware publishes one batch per request: a count, the latency
// and an error count for 4xx/5xx responses.
func MetricsMiddleware(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		// Route templates keep cardinality bounded.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		class := strconv.Itoa(status/100) + "xx"
		dims := map[string]string{
			"Service": serviceName,
			"Route":   c.Request.Method + " " + route,
			"Status":  class,
		}

		data := []awspkg.Datum{
			awspkg.Count(awspkg.MetricHTTPRequests),
			awspkg.Latency(awspkg.MetricHTTPLatency, elapsed),
		}
		switch class {
		case "4xx":
			data = append(data, awspkg.Count(awspkg.MetricHTTPErrors), awspkg.Count(awspkg.MetricHTTP4xx))
		case "5xx":
			data = append(data, awspkg.Count(awspkg.MetricHTTPErrors), awspkg.Count(awspkg.MetricHTTP5xx))
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsClient.Put(ctx, dims, data...)
		}()
	}
}
