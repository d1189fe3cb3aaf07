// Package main - metrics.go
//
// This file exports controller progress as Prometheus metrics. The sink is
// fed by the event stream; the HTTP endpoint is optional (--metrics-addr).
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsSink turns events into Prometheus metrics
type metricsSink struct {
	events      *prometheus.CounterVec
	crossings   prometheus.Counter
	boarded     *prometheus.CounterVec
	step        prometheus.Gauge
	leftTokens  *prometheus.GaugeVec
	solved      prometheus.Gauge
	lastEventAt prometheus.Gauge
}

// NewMetricsSink registers the controller metrics on reg
func NewMetricsSink(reg prometheus.Registerer) EventSink {
	f := promauto.With(reg)
	return &metricsSink{
		// events counts controller events by kind.
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferrybot",
			Name:      "events_total",
			Help:      "Controller events by kind",
		}, []string{"kind"}),

		crossings: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ferrybot",
			Name:      "crossings_total",
			Help:      "Boat crossings confirmed by a side change",
		}),

		// boarded counts tokens clicked aboard, by class.
		boarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ferrybot",
			Name:      "boarded_total",
			Help:      "Tokens boarded for a crossing",
		}, []string{"class"}),

		step: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ferrybot",
			Name:      "step",
			Help:      "Current crossing step",
		}),

		leftTokens: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ferrybot",
			Name:      "left_shore_tokens",
			Help:      "Tokens seen on the left shore in the last observation",
		}, []string{"class"}),

		solved: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ferrybot",
			Name:      "solved",
			Help:      "1 once the puzzle is solved",
		}),

		lastEventAt: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ferrybot",
			Name:      "last_event_timestamp_seconds",
			Help:      "Unix time of the last controller event",
		}),
	}
}

// Emit updates the metrics for one event
func (m *metricsSink) Emit(ev Event) {
	m.events.WithLabelValues(string(ev.Kind)).Inc()
	m.step.Set(float64(ev.Step))
	m.lastEventAt.Set(float64(ev.Time.Unix()))

	switch ev.Kind {
	case EventObserved:
		m.leftTokens.WithLabelValues(Missionary.String()).Set(float64(ev.Counts.LeftMissionaries))
		m.leftTokens.WithLabelValues(Cannibal.String()).Set(float64(ev.Counts.LeftCannibals))
	case EventBoarded:
		if ev.Move != nil {
			m.boarded.WithLabelValues(Missionary.String()).Add(float64(ev.Move.Missionaries))
			m.boarded.WithLabelValues(Cannibal.String()).Add(float64(ev.Move.Cannibals))
		}
	case EventArrived:
		m.crossings.Inc()
	case EventSolved:
		m.solved.Set(1)
	}
}

// ServeMetrics serves /metrics for gatherer on addr until ctx is done
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	LogInfo("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
