package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring smoke runs
var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnasmoke_submissions_total",
		Help: "The total number of submitted extrinsics by call and outcome",
	}, []string{"call", "status"})

	SubmissionTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dnasmoke_submission_seconds",
		Help:    "Time taken from submission to a terminal outcome",
		Buckets: prometheus.ExponentialBuckets(1, 2, 9), // 1s to ~4m, block times are 6s
	}, []string{"call"})

	SubmissionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnasmoke_submission_failures_total",
		Help: "Total number of failed submissions by reason",
	}, []string{"call", "reason"})

	FundingTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnasmoke_funding_transfers_total",
		Help: "Number of funding guard decisions by role",
	}, []string{"role", "action"})

	NonceResyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dnasmoke_nonce_resyncs_total",
		Help: "Number of times a local nonce counter was reset to the chain value",
	})

	ScenarioRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dnasmoke_scenario_runs_total",
		Help: "Number of scenario runs by result",
	}, []string{"scenario", "result"})

	ScenarioDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dnasmoke_scenario_duration_seconds",
		Help: "Duration of the last scenario run",
	}, []string{"scenario"})

	// LastStep is the index of the last completed step of a scenario
	LastStep = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dnasmoke_scenario_last_step",
		Help: "Index of the last completed step of the scenario",
	}, []string{"scenario"})
)
