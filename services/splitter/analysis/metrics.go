// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Analysis
// =============================================================================

var (
	// analysisFilesTotal counts analyzed files by language and status.
	// Labels: language (javascript, vue), status (ok, syntax_error, failed)
	analysisFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jssplit",
		Subsystem: "analysis",
		Name:      "files_total",
		Help:      "Total analyzed files by language and status",
	}, []string{"language", "status"})

	// analysisDeclarationsTotal counts inventoried declarations by kind.
	// Labels: kind (function, class, method)
	analysisDeclarationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jssplit",
		Subsystem: "analysis",
		Name:      "declarations_total",
		Help:      "Total declarations collected by kind",
	}, []string{"kind"})

	// analysisSitesTotal counts call and construction sites by outcome.
	// Labels: outcome (resolved, dropped)
	analysisSitesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jssplit",
		Subsystem: "analysis",
		Name:      "sites_total",
		Help:      "Total call and construction sites by resolution outcome",
	}, []string{"outcome"})

	// analysisDurationSeconds measures collect plus resolve time per file.
	analysisDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jssplit",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Time to collect and resolve one file",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// recordAnalysis records the outcome of one analyzed file.
func recordAnalysis(language, status string, a *Analysis, stats ResolveStats, elapsed time.Duration) {
	analysisFilesTotal.WithLabelValues(language, status).Inc()
	analysisDurationSeconds.Observe(elapsed.Seconds())
	if a == nil {
		return
	}
	methods := 0
	for _, c := range a.Classes {
		methods += len(c.Methods)
	}
	analysisDeclarationsTotal.WithLabelValues("function").Add(float64(len(a.Functions)))
	analysisDeclarationsTotal.WithLabelValues("class").Add(float64(len(a.Classes)))
	analysisDeclarationsTotal.WithLabelValues("method").Add(float64(methods))
	analysisSitesTotal.WithLabelValues("resolved").Add(float64(stats.Resolved))
	analysisSitesTotal.WithLabelValues("dropped").Add(float64(stats.Dropped))
}

// RecordAnalysisFailure records a file that could not be read or parsed.
func RecordAnalysisFailure(language string) {
	analysisFilesTotal.WithLabelValues(language, "failed").Inc()
}
