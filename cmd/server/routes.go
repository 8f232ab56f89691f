// Package main provides the chat assistant server entry point.
package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gesin-frd/srat-assistant-go/internal/chatapi"
	"github.com/gesin-frd/srat-assistant-go/internal/config"
	"github.com/gesin-frd/srat-assistant-go/internal/records"
	"github.com/gesin-frd/srat-assistant-go/internal/session"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, chatHandler *chatapi.Handler, repo *records.Repository, sessions *session.Registry, registry *prometheus.Registry, cfg *config.Config) {
	// Root endpoint
	rootHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "srat-assistant"})
	}
	router.GET("/", rootHandler)
	router.HEAD("/", rootHandler)

	// Health check endpoints
	// Liveness Probe - checks if the application is alive (minimal check)
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness Probe - checks if the application is ready to serve traffic
	readyHandler := func(c *gin.Context) {
		if err := repo.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}

		users, assignments, _ := repo.Counts(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "connected",
			"records": gin.H{
				"users":       users,
				"assignments": assignments,
			},
			"sessions": sessions.Len(),
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	// Chat endpoint
	router.POST("/api/chat", chatHandler.Handle)

	// Prometheus metrics endpoint, Basic Auth when a password is set
	metricsAuth := metricsAuthMiddleware(cfg.MetricsPassword != "", cfg.MetricsUsername, cfg.MetricsPassword)
	router.GET("/metrics", metricsAuth, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
