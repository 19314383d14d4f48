// Package metrics exposes this node's runtime counters and gauges as
// Prometheus collectors: segments sent, retransmitted, and dropped,
// route-update broadcasts, and the live size of the routing and GBN
// send-window state.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector this node publishes. Register it
// once against a prometheus.Registerer (or prometheus.DefaultRegisterer)
// and pass it down to the components that update it.
type Registry struct {
	SegmentsSent         prometheus.Counter
	SegmentsRetransmitted prometheus.Counter
	SegmentsDropped       *prometheus.CounterVec

	RouteUpdatesSent prometheus.Counter
	RoutingTableSize prometheus.Gauge

	GBNWindowOccupancy prometheus.Gauge
	OverlayLinksUp     prometheus.Gauge
}

// NewRegistry constructs a Registry with every collector named under
// the srtnet_ prefix, matching this module's metric-naming convention.
func NewRegistry() *Registry {
	return &Registry{
		SegmentsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srtnet_segments_sent_total",
			Help: "Total SRT segments handed to the network layer.",
		}),
		SegmentsRetransmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srtnet_segments_retransmitted_total",
			Help: "Total SRT segments retransmitted after a GBN timeout.",
		}),
		SegmentsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "srtnet_segments_dropped_total",
			Help: "Total segments dropped, labeled by reason.",
		}, []string{"reason"}),
		RouteUpdatesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srtnet_route_updates_sent_total",
			Help: "Total distance-vector route-update broadcasts sent.",
		}),
		RoutingTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "srtnet_routing_table_entries",
			Help: "Current number of destinations with a known next hop.",
		}),
		GBNWindowOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "srtnet_gbn_window_occupancy",
			Help: "Outstanding unacknowledged segments of the client socket that sent most recently.",
		}),
		OverlayLinksUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "srtnet_overlay_links_up",
			Help: "Number of established overlay neighbor connections.",
		}),
	}
}

// MustRegister registers every collector in r against reg, panicking on
// a duplicate-registration error (the same behavior as
// prometheus.MustRegister, scoped to this node's collector set).
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.SegmentsSent,
		r.SegmentsRetransmitted,
		r.SegmentsDropped,
		r.RouteUpdatesSent,
		r.RoutingTableSize,
		r.GBNWindowOccupancy,
		r.OverlayLinksUp,
	)
}
