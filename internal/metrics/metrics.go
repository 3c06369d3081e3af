// Package metrics exposes process-internal Prometheus counters for the
// analyst and the scheduler. There is no HTTP listener; Render gathers the
// registry into text for the REPL.
package metrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsec_turns_total",
		Help: "Chat turns handled, labeled by whether monitoring data was fetched.",
	}, []string{"fetched"})

	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatsec_turn_duration_seconds",
		Help:    "End-to-end duration of one chat turn.",
		Buckets: prometheus.DefBuckets,
	})

	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsec_fetch_errors_total",
		Help: "Monitoring data fetches that returned an error envelope.",
	}, []string{"source"})

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatsec_job_runs_total",
		Help: "Proactive job firings, labeled by final result.",
	}, []string{"result"})

	JobAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatsec_job_attempts_total",
		Help: "Individual proactive job execution attempts, including retries.",
	})
)

// Render gathers the default registry into the Prometheus text format.
func Render() (string, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("encode metrics: %w", err)
		}
	}
	return buf.String(), nil
}
