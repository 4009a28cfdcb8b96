package interview

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/merelin/diffa-sub000/metrics"
)

const subsystem = "interview"

var (
	questionsAsked = metrics.NewCounter(
		"questions",
		subsystem,
		"Number of questions asked to participants",
		[]string{},
	).WithLabelValues()

	answersReceived = metrics.NewCounter(
		"answers",
		subsystem,
		"Number of answers received from participants",
		[]string{},
	).WithLabelValues()

	interviewsFinished = metrics.NewCounter(
		"finished",
		subsystem,
		"Number of finished interviews by outcome",
		[]string{"outcome"},
	)
	inSync    = interviewsFinished.WithLabelValues("in_sync")
	differing = interviewsFinished.WithLabelValues("differing")
	failed    = interviewsFinished.WithLabelValues("failed")

	roundsPerInterview = metrics.NewHistogramWithBuckets(
		"rounds",
		subsystem,
		"Number of rounds until an interview converged",
		[]string{},
		prometheus.LinearBuckets(1, 1, 10),
	).WithLabelValues()
)
