package vstore

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/merelin/diffa-sub000/metrics"
)

const subsystem = "vstore"

var (
	eventsIngested = metrics.NewCounter(
		"events",
		subsystem,
		"Number of ingested change events",
		[]string{"kind"},
	)
	upsertEvents    = eventsIngested.WithLabelValues("upsert")
	tombstoneEvents = eventsIngested.WithLabelValues("tombstone")
	invalidEvents   = eventsIngested.WithLabelValues("invalid")

	digestsResolved = metrics.NewCounter(
		"digests_resolved",
		subsystem,
		"Number of digests resolved by source",
		[]string{"source"},
	)
	cachedDigests   = digestsResolved.WithLabelValues("cache")
	computedDigests = digestsResolved.WithLabelValues("computed")

	skippedWriteBacks = metrics.NewCounter(
		"skipped_write_backs",
		subsystem,
		"Number of computed digests not cached because the cell changed after it was read",
		[]string{},
	).WithLabelValues()

	deltaBuckets = metrics.NewGauge(
		"delta_buckets",
		subsystem,
		"Number of differing top level buckets found by the last deltify of a pair",
		[]string{"pair"},
	)

	outrightDifferences = metrics.NewHistogramWithBuckets(
		"outright_differences",
		subsystem,
		"Number of entity differences found per bucket",
		[]string{},
		prometheus.ExponentialBuckets(1, 2, 16),
	).WithLabelValues()
)
