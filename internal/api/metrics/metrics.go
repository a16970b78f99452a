// Package metrics defines and registers all custom Prometheus metrics for the
// content generation service. It is the single source of truth for metric
// names, labels, and help strings. Metrics register themselves with the
// default registry via promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "content_system"

// ── Message metrics ───────────────────────────────────────────────────────────

// MessagesProcessedTotal counts inbound chat messages handled successfully.
var MessagesProcessedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_processed_total",
		Help:      "Total number of inbound messages successfully processed.",
	},
)

// MessagesErrorsTotal counts inbound chat messages that failed processing.
var MessagesErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_errors_total",
		Help:      "Total number of inbound messages that failed processing.",
	},
)

// MessagesQueueDepth tracks the messages waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MessagesQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "messages_queue_depth",
		Help:      "Current number of messages pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Pipeline metrics ──────────────────────────────────────────────────────────

// StageCallDuration measures individual remote stage calls.
// Labels:
//   - stage: "niche", "topic", or "post"
//   - outcome: "ok", "timeout", "transient", "fatal", or "error"
var StageCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_call_duration_seconds",
		Help:      "Duration of one remote generation stage call.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 15, 30, 60},
	},
	[]string{"stage", "outcome"},
)

// PostsGeneratedTotal counts pipeline runs that reached terminal success.
var PostsGeneratedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_generated_total",
		Help:      "Total number of posts generated end to end.",
	},
)

// ── Quota metrics ─────────────────────────────────────────────────────────────

// QuotaDecisionsTotal counts reservation attempts.
// Label:
//   - result: "granted" or "denied"
var QuotaDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_decisions_total",
		Help:      "Total number of weekly quota reservation attempts, by result.",
	},
	[]string{"result"},
)

// QuotaReleasesTotal counts reservations returned after failed runs.
var QuotaReleasesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_releases_total",
		Help:      "Total number of quota reservations released after pipeline failures.",
	},
)
