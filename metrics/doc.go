// Package metrics exposes crawl progress and outcome counters as
// Prometheus collectors. Counters are driven by subscribing to an
// event.Bus; partition gauges are refreshed by Snapshot from a
// store.Counters. The package has no dependency on the scheduler.
package metrics
