package metrics

import (
	"context"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crawlcore/crawlcore/event"
	"github.com/crawlcore/crawlcore/store"
)

// counterValue reads back a counter's current value without requiring
// a full registry scrape, for use by CommittedTotal/RejectedTotal.
func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

// Metrics holds every Prometheus collector crawlcore registers. It is
// constructed with NewMetrics and wired to an event.Bus with Attach;
// the two are separate steps so a caller can register Metrics with a
// custom prometheus.Registerer before Attach starts counting events.
type Metrics struct {
	committed   *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	spoiled     *prometheus.CounterVec
	runsStarted prometheus.Counter
	runsEnded   prometheus.Counter
	partitions  *prometheus.GaugeVec
}

// NewMetrics constructs Metrics with the given namespace (e.g.
// "crawlcore"), ready to be registered with a prometheus.Registerer.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		committed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_committed_total",
			Help:      "Total number of references committed to the downstream sink, by action (add, remove).",
		}, []string{"action"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_rejected_total",
			Help:      "Total number of references that ended a pass rejected, by reason.",
		}, []string{"reason"}),
		spoiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spoil_actions_total",
			Help:      "Total number of spoil-policy decisions applied to bad-state references, by action.",
		}, []string{"action"}),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of crawl runs started.",
		}),
		runsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_ended_total",
			Help:      "Total number of crawl runs that reached CrawlerRunEnd.",
		}),
		partitions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_partition_size",
			Help:      "Approximate size of each CrawlStore partition, refreshed by Snapshot.",
		}, []string{"partition"}),
	}
}

// CommittedTotal returns the current value of the documents_committed_total
// counter for the given action ("add" or "remove").
func (m *Metrics) CommittedTotal(action string) float64 {
	return counterValue(m.committed.WithLabelValues(action))
}

// RejectedTotal returns the current value of the documents_rejected_total
// counter for the given reason.
func (m *Metrics) RejectedTotal(reason string) float64 {
	return counterValue(m.rejected.WithLabelValues(reason))
}

// SpoiledTotal returns the current value of the spoil_actions_total
// counter for the given SpoilPolicy action name ("ignore", "delete", or
// "grace_once").
func (m *Metrics) SpoiledTotal(action string) float64 {
	return counterValue(m.spoiled.WithLabelValues(action))
}

// Collectors returns every collector Metrics owns, for bulk
// registration: registry.MustRegister(m.Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.committed, m.rejected, m.spoiled, m.runsStarted, m.runsEnded, m.partitions}
}

// Snapshot refreshes the store_partition_size gauges from counters. A
// caller drives this on its own ticker (crawlcore has no built-in
// metrics-refresh loop) — typically alongside event.Progress reporting.
func (m *Metrics) Snapshot(ctx context.Context, counters store.Counters) error {
	queued, err := counters.QueuedCount(ctx)
	if err != nil {
		return err
	}
	active, err := counters.ActiveCount(ctx)
	if err != nil {
		return err
	}
	processed, err := counters.ProcessedCount(ctx)
	if err != nil {
		return err
	}
	m.partitions.WithLabelValues("queued").Set(float64(queued))
	m.partitions.WithLabelValues("active").Set(float64(active))
	m.partitions.WithLabelValues("processed").Set(float64(processed))
	return nil
}

// Attach subscribes Metrics to bus, incrementing the matching counter
// for every lifecycle and commit/reject event published.
func (m *Metrics) Attach(bus *event.Bus) {
	bus.Subscribe(m.onEvent)
}

func (m *Metrics) onEvent(ev event.Event) {
	switch ev.Name {
	case event.CrawlerRunBegin:
		m.runsStarted.Inc()
	case event.CrawlerRunEnd:
		m.runsEnded.Inc()
	case event.DocumentCommittedAdd:
		m.committed.WithLabelValues("add").Inc()
	case event.DocumentCommittedRemove:
		m.committed.WithLabelValues("remove").Inc()
		if ev.Subject.Kind() == event.SubjectDescription {
			m.spoiled.WithLabelValues(ev.Subject.Description()).Inc()
		}
	case event.RejectedFilter:
		m.rejected.WithLabelValues("filter").Inc()
	case event.RejectedUnmodified:
		m.rejected.WithLabelValues("unmodified").Inc()
	case event.RejectedNotFound:
		m.rejected.WithLabelValues("not_found").Inc()
	case event.RejectedBadStatus:
		m.rejected.WithLabelValues("bad_status").Inc()
	case event.RejectedImport:
		m.rejected.WithLabelValues("import").Inc()
	case event.RejectedError:
		m.rejected.WithLabelValues("error").Inc()
		if ev.Subject.Kind() == event.SubjectDescription {
			m.spoiled.WithLabelValues(ev.Subject.Description()).Inc()
		}
	}
}
