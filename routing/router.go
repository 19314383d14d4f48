// Package routing implements the SNP control and forwarding plane: the
// neighbor-cost table, the distance-vector table, the hash-bucket
// routing table, and the Router daemon that ties them together —
// periodically broadcasting this node's distance vector, relaxing
// routes on incoming route-update packets, and forwarding data packets
// addressed to other nodes.
package routing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/srtnet/srtnet/internal"
	"github.com/srtnet/srtnet/metrics"
	"github.com/srtnet/srtnet/snp"
	"github.com/srtnet/srtnet/topology"
)

// ErrRouteUnknown is returned (and the offending packet dropped) when a
// packet must be forwarded to a destination with no known route.
var ErrRouteUnknown = errors.New("routing: no route to destination")

// PacketSender delivers an SNP packet to nextHop, or to every neighbor
// when nextHop is snp.BroadcastNodeID.
type PacketSender interface {
	SendPacket(nextHop uint32, pkt snp.Packet) error
}

// SegmentDeliverer hands a decapsulated segment payload up to the local
// transport layer once it has reached its destination node.
type SegmentDeliverer interface {
	DeliverSegment(fromNode uint32, payload []byte)
}

// Router is the per-node routing daemon: it owns the neighbor-cost,
// distance-vector, and routing tables, and processes incoming SNP
// packets, relaxing routes and forwarding data.
//
// Lock ordering is dv then rt, everywhere; acquiring them in any other
// order risks deadlock against the route-update relaxation path.
type Router struct {
	internal.Logger

	myID uint32
	nct  *NeighborCostTable

	dvMu sync.Mutex
	dv   *DVTable

	rtMu sync.Mutex
	rt   *RoutingTable

	sender    PacketSender
	deliverer SegmentDeliverer

	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Registry
}

// New builds a Router for topology t, forwarding through sender and
// delivering locally-destined segments to deliverer.
func New(t *topology.Table, sender PacketSender, deliverer SegmentDeliverer, log *slog.Logger) *Router {
	return &Router{
		Logger:    internal.Logger{Log: log},
		myID:      t.MyNodeID(),
		nct:       NewNeighborCostTable(t),
		dv:        NewDVTable(t),
		rt:        NewRoutingTable(t),
		sender:    sender,
		deliverer: deliverer,
	}
}

// HandlePacket dispatches one packet received from the overlay: data
// packets addressed to this node are delivered locally, data packets
// addressed elsewhere are forwarded per the routing table, and
// route-update packets trigger a Bellman-Ford relaxation.
func (r *Router) HandlePacket(pkt snp.Packet) error {
	switch {
	case pkt.Type == snp.TypeSNP && pkt.DstNodeID == r.myID:
		r.deliverer.DeliverSegment(pkt.SrcNodeID, pkt.Payload)
		return nil
	case pkt.Type == snp.TypeSNP:
		r.rtMu.Lock()
		nextHop, ok := r.rt.GetNextNode(pkt.DstNodeID)
		r.rtMu.Unlock()
		if !ok {
			r.Warn("no route to destination, dropping", slog.Uint64("dst", uint64(pkt.DstNodeID)))
			return ErrRouteUnknown
		}
		return r.sender.SendPacket(nextHop, pkt)
	case pkt.Type == snp.TypeRouteUpdate:
		return r.handleRouteUpdate(pkt)
	default:
		return nil
	}
}

// handleRouteUpdate stores the neighbor's advertised row and relaxes this
// node's own row through it. A self-row cost is only ever lowered: an
// advertised increase never raises it again, and there is no poisoned
// reverse, so a route stays in place after its path gets worse or fails.
func (r *Router) handleRouteUpdate(pkt snp.Packet) error {
	ru, err := snp.ParseRouteUpdate(pkt.Payload)
	if err != nil {
		return err
	}

	r.dvMu.Lock()
	r.rtMu.Lock()
	defer r.rtMu.Unlock()
	defer r.dvMu.Unlock()

	for _, e := range ru.Entries {
		r.dv.SetCost(pkt.SrcNodeID, e.NodeID, e.Cost)
		myCost := r.dv.Cost(r.myID, e.NodeID)
		fwCost := addCost(r.nct.Cost(pkt.SrcNodeID), e.Cost)
		if myCost > fwCost {
			r.dv.SetCost(r.myID, e.NodeID, fwCost)
			r.rt.SetNextNode(e.NodeID, pkt.SrcNodeID)
			r.Debug("relaxed route",
				slog.Uint64("dest", uint64(e.NodeID)),
				slog.Uint64("via", uint64(pkt.SrcNodeID)),
				slog.Uint64("cost", uint64(fwCost)))
		}
	}
	if r.Metrics != nil {
		r.Metrics.RoutingTableSize.Set(float64(len(r.rt.Entries())))
	}
	return nil
}

func addCost(a, b uint32) uint32 {
	sum := a + b
	if a >= InfiniteCost || b >= InfiniteCost || sum >= InfiniteCost {
		return InfiniteCost
	}
	return sum
}

// BroadcastSelfRow builds an SNP route-update packet from this node's
// current self row and sends it to every neighbor.
func (r *Router) BroadcastSelfRow() error {
	r.dvMu.Lock()
	selfRow := r.dv.SelfRow()
	r.dvMu.Unlock()

	ru := snp.RouteUpdate{Entries: make([]snp.RouteEntry, 0, len(selfRow))}
	for dst, cost := range selfRow {
		ru.Entries = append(ru.Entries, snp.RouteEntry{NodeID: dst, Cost: cost})
	}
	buf := make([]byte, ru.Len())
	n, err := ru.Marshal(buf)
	if err != nil {
		return err
	}
	pkt := snp.Packet{SrcNodeID: r.myID, DstNodeID: snp.BroadcastNodeID, Type: snp.TypeRouteUpdate, Payload: buf[:n]}
	if err := r.sender.SendPacket(snp.BroadcastNodeID, pkt); err != nil {
		return err
	}
	if r.Metrics != nil {
		r.Metrics.RouteUpdatesSent.Inc()
	}
	return nil
}

// RunRouteUpdateDaemon broadcasts this node's distance vector every
// interval until ctx is cancelled.
func (r *Router) RunRouteUpdateDaemon(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := r.BroadcastSelfRow(); err != nil {
			r.Warn("route update broadcast failed", slog.String("err", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SendSegment wraps payload (a marshaled SRT segment) in an SNP packet
// addressed to dstNode and forwards it along the current best route,
// for the transport layer above. Package srt adapts it to its Network
// interface, which takes a segment.Segment rather than marshaled bytes.
func (r *Router) SendSegment(dstNode uint32, payload []byte) error {
	pkt := snp.Packet{SrcNodeID: r.myID, DstNodeID: dstNode, Type: snp.TypeSNP, Payload: payload}
	if dstNode == r.myID {
		r.deliverer.DeliverSegment(r.myID, payload)
		return nil
	}
	r.rtMu.Lock()
	nextHop, ok := r.rt.GetNextNode(dstNode)
	r.rtMu.Unlock()
	if !ok {
		return ErrRouteUnknown
	}
	return r.sender.SendPacket(nextHop, pkt)
}

// SetSender rebinds the PacketSender a Router forwards through. It
// exists for the construction order in netnode.Wire, where the overlay
// Node (the usual sender) itself takes the Router as its packet
// receiver: one side of that cycle has to be wired after both objects
// exist.
func (r *Router) SetSender(sender PacketSender) { r.sender = sender }

// SetDeliverer rebinds the SegmentDeliverer a Router hands locally
// destined payloads to, for the same late-binding reason as SetSender.
func (r *Router) SetDeliverer(deliverer SegmentDeliverer) { r.deliverer = deliverer }

// RoutingTable exposes the underlying routing table for diagnostics and
// the metrics collector.
func (r *Router) RoutingTable() *RoutingTable {
	r.rtMu.Lock()
	defer r.rtMu.Unlock()
	return r.rt
}
