package routing

import "github.com/srtnet/srtnet/topology"

// InfiniteCost represents unreachability, matching the wire-level sentinel
// used in route-update records.
const InfiniteCost = 0xFFFF

// NeighborCostTable records the direct link cost from this node to each of
// its topology-file neighbors.
type NeighborCostTable struct {
	cost map[uint32]uint32
}

// NewNeighborCostTable builds a table from the directly-adjacent links in t.
func NewNeighborCostTable(t *topology.Table) *NeighborCostTable {
	nct := &NeighborCostTable{cost: make(map[uint32]uint32, len(t.Neighbors()))}
	for id, c := range t.Neighbors() {
		nct.cost[id] = c
	}
	return nct
}

// Cost returns the direct link cost to nodeID, or InfiniteCost if nodeID is
// not a direct neighbor.
func (nct *NeighborCostTable) Cost(nodeID uint32) uint32 {
	if c, ok := nct.cost[nodeID]; ok {
		return c
	}
	return InfiniteCost
}

// Neighbors returns the node IDs of every direct neighbor.
func (nct *NeighborCostTable) Neighbors() []uint32 {
	out := make([]uint32, 0, len(nct.cost))
	for id := range nct.cost {
		out = append(out, id)
	}
	return out
}
