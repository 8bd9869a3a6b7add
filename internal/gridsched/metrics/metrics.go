package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricPrefix = "gridsched_"

var JobsSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_submitted_total",
		Help: "Jobs accepted by Submit",
	}, []string{"server"})

var JobsScheduled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_scheduled_total",
		Help: "Jobs handed to a requesting resource",
	}, []string{"server"})

var EmptyReplies = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "empty_replies_total",
		Help: "Resource requests answered with the empty job",
	}, []string{"server"})

var JobsMigrated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_migrated_total",
		Help: "Jobs pushed to a peer during the migration phase",
	}, []string{"server", "peer"})

var JobsReturned = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_returned_total",
		Help: "Finished jobs pushed one hop toward their owner",
	}, []string{"server", "peer"})

var JobsQuarantined = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "jobs_quarantined_total",
		Help: "Jobs moved to the dead letter record",
	}, []string{"server", "reason"})

var QueueLength = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "queue_length",
		Help: "Jobs currently queued",
	}, []string{"server"})

var DoneQueueLength = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "done_queue_length",
		Help: "Finished jobs awaiting return routing or pickup",
	}, []string{"server"})

var ResourcePrice = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "resource_current_price",
		Help: "Current offered price per resource",
	}, []string{"server", "resource"})

var TickDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    MetricPrefix + "tick_duration_seconds",
		Help:    "Scheduler tick latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"server"})
