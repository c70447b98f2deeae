// Package metrics exposes Prometheus collectors for the analysis queue.
//
// A Recorder is registered as an events.EventHandler so counters and the
// duration histogram follow the worker's lifecycle events, while queue
// gauges are read from the queue on every scrape.
package metrics
