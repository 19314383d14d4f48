package routing

import "github.com/srtnet/srtnet/topology"

// MaxRoutingTableSlots is the number of hash buckets in a RoutingTable;
// chosen comfortably larger than any realistic overlay node count so
// chains stay short.
const MaxRoutingTableSlots = 64

type routingEntry struct {
	destNodeID uint32
	nextNodeID uint32
}

// RoutingTable maps destination node ID to next-hop node ID, implemented
// as a fixed array of hash buckets each holding a chain of entries, the
// same layout as the lab's hash-bucket routing table.
type RoutingTable struct {
	hash [MaxRoutingTableSlots][]routingEntry
}

func makeHash(destNodeID uint32) uint32 {
	return destNodeID % MaxRoutingTableSlots
}

// NewRoutingTable builds a table whose direct neighbors route to
// themselves as next hop, plus a self-entry routing this node to
// itself.
func NewRoutingTable(t *topology.Table) *RoutingTable {
	rt := &RoutingTable{}
	rt.SetNextNode(t.MyNodeID(), t.MyNodeID())
	for id := range t.Neighbors() {
		rt.SetNextNode(id, id)
	}
	return rt
}

// SetNextNode inserts or updates the next-hop entry for destNodeID.
func (rt *RoutingTable) SetNextNode(destNodeID, nextNodeID uint32) {
	slot := makeHash(destNodeID)
	chain := rt.hash[slot]
	for i := range chain {
		if chain[i].destNodeID == destNodeID {
			chain[i].nextNodeID = nextNodeID
			return
		}
	}
	rt.hash[slot] = append(chain, routingEntry{destNodeID: destNodeID, nextNodeID: nextNodeID})
}

// GetNextNode looks up the next hop for destNodeID. ok is false if no
// route to destNodeID is known.
func (rt *RoutingTable) GetNextNode(destNodeID uint32) (nextNodeID uint32, ok bool) {
	slot := makeHash(destNodeID)
	for _, e := range rt.hash[slot] {
		if e.destNodeID == destNodeID {
			return e.nextNodeID, true
		}
	}
	return 0, false
}

// Entries returns every (destination, next hop) pair currently known, in
// no particular order.
func (rt *RoutingTable) Entries() map[uint32]uint32 {
	out := make(map[uint32]uint32)
	for _, chain := range rt.hash {
		for _, e := range chain {
			out[e.destNodeID] = e.nextNodeID
		}
	}
	return out
}
