// Package netnode wires the overlay, routing, and transport layers
// together into one running node, the construction every cmd/
// program in this module shares: read the topology file, build the
// router and overlay mesh member around each other, then the SRT
// transport on top.
package netnode

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srtnet/srtnet/config"
	"github.com/srtnet/srtnet/metrics"
	"github.com/srtnet/srtnet/overlay"
	"github.com/srtnet/srtnet/routing"
	"github.com/srtnet/srtnet/segment"
	"github.com/srtnet/srtnet/srt"
	"github.com/srtnet/srtnet/topology"
)

// Node bundles one host's fully wired stack, ready to Bootstrap and
// then use Transport to Dial or Listen.
type Node struct {
	Topology  *topology.Table
	Router    *routing.Router
	Overlay   *overlay.Node
	Transport *srt.Transport
	Metrics   *metrics.Registry
	PromReg   *prometheus.Registry
}

// Wire parses cfg.TopologyFile and constructs the router, overlay node,
// and SRT transport, resolving their constructor cycle (the router
// forwards through the overlay node, which hands inbound packets back
// to the router) by binding the router's sender and deliverer after
// both objects exist.
func Wire(cfg config.Config, log *slog.Logger) (*Node, error) {
	f, err := os.Open(cfg.TopologyFile)
	if err != nil {
		return nil, fmt.Errorf("netnode: opening topology file: %w", err)
	}
	defer f.Close()
	tbl, err := topology.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("netnode: parsing topology: %w", err)
	}

	reg := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	reg.MustRegister(promReg)

	router := routing.New(tbl, nil, nil, log)
	router.Metrics = reg

	transport := srt.NewRoutedTransport(router, cfg.SRT, log)
	transport.Metrics = reg
	router.SetDeliverer(transport)

	node := overlay.New(tbl, cfg.OverlayPort, router, log)
	node.Metrics = reg
	if cfg.PacketLossRate > 0 {
		node.Loss = &segment.LossyLink{Rate: cfg.PacketLossRate}
	}
	router.SetSender(node)

	return &Node{
		Topology:  tbl,
		Router:    router,
		Overlay:   node,
		Transport: transport,
		Metrics:   reg,
		PromReg:   promReg,
	}, nil
}

// Run connects the overlay mesh and starts the route-update daemon in
// the background, returning once the mesh is up or ctx is cancelled.
func (n *Node) Run(ctx context.Context, listenAddr string, cfg config.Config) error {
	if err := n.Overlay.Bootstrap(ctx, listenAddr); err != nil {
		return fmt.Errorf("netnode: bootstrap: %w", err)
	}
	go n.Router.RunRouteUpdateDaemon(ctx, cfg.RouteUpdateInterval)
	return nil
}

// Close tears down the overlay connections.
func (n *Node) Close() { n.Overlay.Close() }
