package routing

import "github.com/srtnet/srtnet/topology"

// DVTable is the distance-vector table: one row per direct neighbor plus
// a row for this node itself, each row holding the believed cost from its
// source node to every known destination in the overlay.
//
// The row for this node's own ID is the "self row" broadcast in route
// updates; every other row records what this node currently believes its
// neighbors' distance vectors look like, as learned from their own
// broadcasts.
type DVTable struct {
	myID  uint32
	nodes []uint32
	rows  map[uint32]map[uint32]uint32 // source nodeID -> dest nodeID -> cost
}

// NewDVTable builds an (n+1)-row table (one row per neighbor plus self),
// with costs to direct neighbors in the self row initialized from t and
// the self-to-self entry set to 0, and every other entry set to
// InfiniteCost.
func NewDVTable(t *topology.Table) *DVTable {
	dv := &DVTable{
		myID:  t.MyNodeID(),
		nodes: t.Nodes(),
		rows:  make(map[uint32]map[uint32]uint32),
	}
	sources := []uint32{dv.myID}
	sources = append(sources, neighborList(t)...)
	for _, src := range sources {
		row := make(map[uint32]uint32, len(dv.nodes))
		for _, dst := range dv.nodes {
			if src == dv.myID {
				if c, ok := t.Cost(dst); ok {
					row[dst] = c
				} else if dst == dv.myID {
					row[dst] = 0
				} else {
					row[dst] = InfiniteCost
				}
			} else {
				row[dst] = InfiniteCost
			}
		}
		dv.rows[src] = row
	}
	return dv
}

func neighborList(t *topology.Table) []uint32 {
	out := make([]uint32, 0, len(t.Neighbors()))
	for id := range t.Neighbors() {
		out = append(out, id)
	}
	return out
}

// SetCost sets the believed cost from fromNodeID to toNodeID. It returns
// false if fromNodeID does not have a row in the table (it is neither
// this node nor one of its direct neighbors).
func (dv *DVTable) SetCost(fromNodeID, toNodeID, cost uint32) bool {
	row, ok := dv.rows[fromNodeID]
	if !ok {
		return false
	}
	row[toNodeID] = cost
	return true
}

// Cost returns the believed cost from fromNodeID to toNodeID, or
// InfiniteCost if no such entry exists.
func (dv *DVTable) Cost(fromNodeID, toNodeID uint32) uint32 {
	row, ok := dv.rows[fromNodeID]
	if !ok {
		return InfiniteCost
	}
	if c, ok := row[toNodeID]; ok {
		return c
	}
	return InfiniteCost
}

// SelfRow returns a snapshot of this node's own distance vector, keyed by
// destination node ID.
func (dv *DVTable) SelfRow() map[uint32]uint32 {
	row := dv.rows[dv.myID]
	out := make(map[uint32]uint32, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Nodes returns every destination node ID tracked by the table.
func (dv *DVTable) Nodes() []uint32 { return dv.nodes }
