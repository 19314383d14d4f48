package routing_test

import (
	"strings"
	"testing"

	"github.com/srtnet/srtnet/routing"
	"github.com/srtnet/srtnet/snp"
	"github.com/srtnet/srtnet/topology"
)

// sample: localhost(node X) -- 10.0.0.2(10) -- 10.0.0.3(5) ; localhost -- 10.0.0.3(20)
const sample = `
localhost 10.0.0.2 10
10.0.0.2 10.0.0.3 5
localhost 10.0.0.3 20
`

func mustTopology(t *testing.T) *topology.Table {
	t.Helper()
	tbl, err := topology.Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestNeighborCostTable(t *testing.T) {
	tbl := mustTopology(t)
	nct := routing.NewNeighborCostTable(tbl)
	if nct.Cost(4) != routing.InfiniteCost {
		t.Fatalf("node 4 should not be a direct neighbor in this fixture")
	}
	for id, want := range tbl.Neighbors() {
		if got := nct.Cost(id); got != want {
			t.Fatalf("cost to %d: got %d want %d", id, got, want)
		}
	}
}

func TestDVTableInitialization(t *testing.T) {
	tbl := mustTopology(t)
	dv := routing.NewDVTable(tbl)
	myID := tbl.MyNodeID()
	for nbr, cost := range tbl.Neighbors() {
		if got := dv.Cost(myID, nbr); got != cost {
			t.Fatalf("self row cost to neighbor %d: got %d want %d", nbr, got, cost)
		}
	}
	// self-to-self should be zero.
	if got := dv.Cost(myID, myID); got != 0 {
		t.Fatalf("self-to-self cost = %d, want 0", got)
	}
}

func TestRoutingTableDirectNeighbors(t *testing.T) {
	tbl := mustTopology(t)
	rt := routing.NewRoutingTable(tbl)
	for nbr := range tbl.Neighbors() {
		next, ok := rt.GetNextNode(nbr)
		if !ok || next != nbr {
			t.Fatalf("expected direct neighbor %d to route to itself, got %d ok=%v", nbr, next, ok)
		}
	}
}

type fakeSender struct {
	sent []struct {
		next uint32
		pkt  snp.Packet
	}
}

func (f *fakeSender) SendPacket(next uint32, pkt snp.Packet) error {
	f.sent = append(f.sent, struct {
		next uint32
		pkt  snp.Packet
	}{next, pkt})
	return nil
}

type fakeDeliverer struct {
	delivered [][]byte
}

func (f *fakeDeliverer) DeliverSegment(from uint32, payload []byte) {
	f.delivered = append(f.delivered, payload)
}

func TestRouterDeliversLocalPackets(t *testing.T) {
	tbl := mustTopology(t)
	sender := &fakeSender{}
	deliverer := &fakeDeliverer{}
	r := routing.New(tbl, sender, deliverer, nil)

	pkt := snp.Packet{SrcNodeID: 99, DstNodeID: tbl.MyNodeID(), Type: snp.TypeSNP, Payload: []byte("hi")}
	if err := r.HandlePacket(pkt); err != nil {
		t.Fatal(err)
	}
	if len(deliverer.delivered) != 1 || string(deliverer.delivered[0]) != "hi" {
		t.Fatalf("expected local delivery, got %+v", deliverer.delivered)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("local packet should not be forwarded, got %+v", sender.sent)
	}
}

func TestRouterDropsUnknownRoute(t *testing.T) {
	tbl := mustTopology(t)
	sender := &fakeSender{}
	deliverer := &fakeDeliverer{}
	r := routing.New(tbl, sender, deliverer, nil)

	pkt := snp.Packet{SrcNodeID: 1, DstNodeID: 0xABCDEF, Type: snp.TypeSNP}
	err := r.HandlePacket(pkt)
	if err != routing.ErrRouteUnknown {
		t.Fatalf("expected ErrRouteUnknown, got %v", err)
	}
}

func TestRouterRelaxesRouteOnBetterCost(t *testing.T) {
	tbl := mustTopology(t)
	sender := &fakeSender{}
	deliverer := &fakeDeliverer{}
	r := routing.New(tbl, sender, deliverer, nil)

	var nbr uint32
	for id := range tbl.Neighbors() {
		nbr = id
		break
	}

	// Announce that nbr can reach some far node (not yet known) at cost 1,
	// so via-nbr cost = directCost(nbr) + 1, which must beat InfiniteCost.
	farNode := uint32(0x99999)
	ru := snp.RouteUpdate{Entries: []snp.RouteEntry{{NodeID: farNode, Cost: 1}}}
	buf := make([]byte, ru.Len())
	n, err := ru.Marshal(buf)
	if err != nil {
		t.Fatal(err)
	}
	pkt := snp.Packet{SrcNodeID: nbr, DstNodeID: tbl.MyNodeID(), Type: snp.TypeRouteUpdate, Payload: buf[:n]}
	if err := r.HandlePacket(pkt); err != nil {
		t.Fatal(err)
	}

	next, ok := r.RoutingTable().GetNextNode(farNode)
	if !ok || next != nbr {
		t.Fatalf("expected route to %d via %d, got next=%d ok=%v", farNode, nbr, next, ok)
	}
}
