package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peterneubauer/savethesquare/internal/metrics"
)

// AccessLog logs one line per request and records request metrics by route template
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(elapsed.Milliseconds()))

		marker := "📥"
		if status >= 500 {
			marker = "❌"
		} else if status >= 400 {
			marker = "⚠️"
		}
		log.Printf("%s %s %s -> %d (%d bytes, %v) from %s",
			marker, c.Request.Method, c.Request.URL.Path, status, c.Writer.Size(), elapsed, c.ClientIP())
	}
}
