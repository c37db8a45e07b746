package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// newOpsRouter builds the minimal liveness/introspection HTTP surface
// spec.md §6 allows (health/reset CLI section): /healthz and /queue/stats
// only — the result-reading API (listing meetings/summaries) stays an
// out-of-scope external collaborator.
//
// Grounded on the teacher's cmd/tarsy/main.go gin.Default()+router.GET
// health-check shape.
func newOpsRouter(p *pipeline) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		stats := p.cfg.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"conductor_state": p.conductor.State(),
			"cities":          stats.Cities,
			"vendors":         stats.VendorCounts,
		})
	})

	router.GET("/queue/stats", func(c *gin.Context) {
		qstats, err := p.queue.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, qstats)
	})

	return router
}
