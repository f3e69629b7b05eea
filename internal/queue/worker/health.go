package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/queue"
	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the worker cannot make progress without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthDeps struct {
	Pingers map[string]Pinger
	Queue   queue.StatsReader
	Metrics http.Handler
}

func (w *Worker) HealthHandler(deps HealthDeps) http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// readiness: consumer running and every dependency answers
	r.GET("/readyz", func(c *gin.Context) {
		if !w.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		for name, p := range deps.Pingers {
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "dependency": name})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/queuez", func(c *gin.Context) {
		body := gin.H{"worker": w.stats.Snapshot()}

		if deps.Queue != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()

			stats, err := deps.Queue.Stats(ctx)
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue stats unavailable"})
				return
			}
			body["queue"] = stats
		}
		c.JSON(http.StatusOK, body)
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	return r
}
