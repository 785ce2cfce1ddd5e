// Package metrics exposes dispatch and event counters through Prometheus.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/auditmos/actionkit/endpoint"
	"github.com/auditmos/actionkit/event"
)

type Metrics struct {
	DispatchDuration *prometheus.HistogramVec
	DispatchTotal    *prometheus.CounterVec
	EventsTotal      *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg gets a private registry
// that nothing scrapes.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		DispatchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actionkit_dispatch_duration_seconds",
			Help:    "Histogram of chain dispatch latencies.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"chain", "outcome"}),

		DispatchTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "actionkit_dispatch_total",
			Help: "Total number of dispatched chains by outcome.",
		}, []string{"chain", "outcome"}),

		EventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "actionkit_events_total",
			Help: "Total number of logged events by type.",
		}, []string{"type"}),
	}
}

// ObserveDispatch implements endpoint.Observer.
func (m *Metrics) ObserveDispatch(chain endpoint.Chain, outcome string, elapsed time.Duration) {
	name := chain.String()
	m.DispatchDuration.WithLabelValues(name, outcome).Observe(elapsed.Seconds())
	m.DispatchTotal.WithLabelValues(name, outcome).Inc()
}

// EventLog returns a log that counts the events it accepts and stores none.
// Combine it with event.Tee to count what another log records.
func (m *Metrics) EventLog(mask event.Mask) event.Log {
	return &eventCounter{counter: m.EventsTotal, mask: mask}
}

type eventCounter struct {
	counter *prometheus.CounterVec
	mask    event.Mask
}

func (c *eventCounter) Mask() event.Mask {
	return c.mask
}

func (c *eventCounter) Log(events ...event.Event) error {
	accepted, err := event.Accept(events, c.mask)
	if err != nil {
		return err
	}
	for _, e := range accepted {
		c.counter.WithLabelValues(e.Type.String()).Inc()
	}
	return nil
}

// WriteText prints counters, gauges and histogram totals from g, one sample
// per line, sorted by family name.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			var err error
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				_, err = fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				_, err = fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				_, err = fmt.Fprintf(w, "%s_count%s %d\n%s_sum%s %g\n",
					mf.GetName(), labels, h.GetSampleCount(), mf.GetName(), labels, h.GetSampleSum())
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
