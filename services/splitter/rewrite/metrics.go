// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rewrite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter/plan"
)

var (
	// rewriteFilesTotal counts rewrite attempts by status.
	// Labels: status (rewritten, unchanged, refused)
	rewriteFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jssplit",
		Subsystem: "rewrite",
		Name:      "files_total",
		Help:      "Total files passed to the rewrite engine by status",
	}, []string{"status"})

	// rewriteItemsTotal counts relocated entities.
	// Labels: kind (function, class, method)
	rewriteItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jssplit",
		Subsystem: "rewrite",
		Name:      "items_total",
		Help:      "Total entities relocated by kind",
	}, []string{"kind"})

	// rewriteNotFoundTotal counts plan items that matched nothing.
	rewriteNotFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jssplit",
		Subsystem: "rewrite",
		Name:      "not_found_total",
		Help:      "Total plan items left unmatched after a split",
	})
)

func recordRewrite(status string) {
	rewriteFilesTotal.WithLabelValues(status).Inc()
}

func recordExtracted(kind string) {
	rewriteItemsTotal.WithLabelValues(kind).Inc()
}

func recordNotFound(groups []*plan.Group) {
	n := 0
	for _, g := range groups {
		n += len(g.Items)
	}
	rewriteNotFoundTotal.Add(float64(n))
}
