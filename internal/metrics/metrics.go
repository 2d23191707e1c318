// Package metrics exposes a Session's live state as a Prometheus
// collector: connection status, mode, and cumulative reconnect/disconnect
// and per-event counts. The host registers it with its own registry; this
// package never starts an HTTP server itself, matching the "host owns the
// frame loop" split the rest of this module follows.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements prometheus.Collector over a Session's live
// counters. It is safe for concurrent Describe/Collect calls from a
// scrape handler while the frame thread concurrently calls the Record*
// methods.
type Collector struct {
	mu sync.Mutex

	connected bool
	mode      float64 // 0 = player, 1 = client

	reconnects  float64
	disconnects float64
	events      map[string]float64

	connectedDesc   *prometheus.Desc
	modeDesc        *prometheus.Desc
	reconnectsDesc  *prometheus.Desc
	disconnectsDesc *prometheus.Desc
	eventsDesc      *prometheus.Desc
}

// New returns a ready-to-register Collector with all counters at zero.
func New() *Collector {
	return &Collector{
		events:          make(map[string]float64),
		connectedDesc:   prometheus.NewDesc("crocket_connected", "1 if the editor connection is up, 0 otherwise.", nil, nil),
		modeDesc:        prometheus.NewDesc("crocket_mode", "0 = player mode, 1 = client mode.", nil, nil),
		reconnectsDesc:  prometheus.NewDesc("crocket_reconnects_total", "Total successful handshakes completed.", nil, nil),
		disconnectsDesc: prometheus.NewDesc("crocket_disconnects_total", "Total disconnect events observed.", nil, nil),
		eventsDesc:      prometheus.NewDesc("crocket_events_total", "Total one-shot protocol events by kind.", []string{"event"}, nil),
	}
}

// SetConnected records the persistent CONNECTED state.
func (c *Collector) SetConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

// SetMode records the current session mode (0 = player, 1 = client).
func (c *Collector) SetMode(clientMode bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clientMode {
		c.mode = 1
	} else {
		c.mode = 0
	}
}

// RecordReconnect increments the successful-handshake counter.
func (c *Collector) RecordReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnects++
}

// RecordDisconnect increments the disconnect counter.
func (c *Collector) RecordDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
}

// RecordEvent increments the named one-shot event counter (e.g. "seek",
// "save", "action").
func (c *Collector) RecordEvent(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[name]++
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connectedDesc
	ch <- c.modeDesc
	ch <- c.reconnectsDesc
	ch <- c.disconnectsDesc
	ch <- c.eventsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	connected := 0.0
	if c.connected {
		connected = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.connectedDesc, prometheus.GaugeValue, connected)
	ch <- prometheus.MustNewConstMetric(c.modeDesc, prometheus.GaugeValue, c.mode)
	ch <- prometheus.MustNewConstMetric(c.reconnectsDesc, prometheus.CounterValue, c.reconnects)
	ch <- prometheus.MustNewConstMetric(c.disconnectsDesc, prometheus.CounterValue, c.disconnects)
	for name, v := range c.events {
		ch <- prometheus.MustNewConstMetric(c.eventsDesc, prometheus.CounterValue, v, name)
	}
}
