// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package splitter

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /v1/splitter/* endpoints.
//
// Endpoints:
//
//	POST   /v1/splitter/analyze           - Analyze content, a file or a folder
//	POST   /v1/splitter/plan              - Compute imports and dangling references
//	POST   /v1/splitter/preview           - Dry-run a plan, returning a unified diff
//	GET    /v1/splitter/snapshots         - List snapshots
//	GET    /v1/splitter/snapshots/diff    - Compare two snapshots
//	GET    /v1/splitter/snapshots/:id     - Load a snapshot
//	DELETE /v1/splitter/snapshots/:id     - Delete a snapshot
//	GET    /v1/splitter/health            - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	splitter := rg.Group("/splitter")
	{
		splitter.POST("/analyze", handlers.HandleAnalyze)
		splitter.POST("/plan", handlers.HandlePlan)
		splitter.POST("/preview", handlers.HandlePreview)

		// diff must be registered before the :id wildcard
		splitter.GET("/snapshots/diff", handlers.HandleDiffSnapshots)
		splitter.GET("/snapshots", handlers.HandleListSnapshots)
		splitter.GET("/snapshots/:id", handlers.HandleLoadSnapshot)
		splitter.DELETE("/snapshots/:id", handlers.HandleDeleteSnapshot)

		splitter.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the gin engine for the serve command: recovery,
// tracing, request IDs, rate limiting, the API under /v1 and Prometheus
// metrics at /metrics.
func NewRouter(svc *Service, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("jssplit"))
	router.Use(RequestIDMiddleware())
	if debug {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cfg := svc.Config().Server
	v1 := router.Group("/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit, cfg.Burst))
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}
