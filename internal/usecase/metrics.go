package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var candidatesScanned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_candidates_scanned_total",
	Help: "Number of raw candidates pulled from source collectors.",
})

var candidatesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_candidates_discarded_total",
	Help: "Number of candidates dropped below the relevance floor.",
})

var opportunitiesCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_opportunities_created_total",
	Help: "Number of opportunities persisted.",
})

var opportunitiesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_opportunities_duplicate_total",
	Help: "Number of candidates skipped because their natural key already exists.",
})

var scansFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "oppscanner_context_scans_failed_total",
	Help: "Number of context scans that failed and were skipped.",
})
