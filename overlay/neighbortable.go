package overlay

import (
	"net"
	"sync"

	"github.com/srtnet/srtnet/topology"
)

type neighborEntry struct {
	nodeID uint32
	host   string
	conn   net.Conn
}

// NeighborTable tracks, for each of this node's direct overlay
// neighbors, the TCP connection (if any) currently established to it.
type NeighborTable struct {
	mu      sync.Mutex
	entries map[uint32]*neighborEntry
}

// NewNeighborTable builds a table with one unconnected entry per direct
// neighbor in t.
func NewNeighborTable(t *topology.Table) *NeighborTable {
	nt := &NeighborTable{entries: make(map[uint32]*neighborEntry)}
	for id := range t.Neighbors() {
		host, _ := t.HostFor(id)
		nt.entries[id] = &neighborEntry{nodeID: id, host: host}
	}
	return nt
}

// SetConn assigns conn to the neighbor entry for nodeID. It reports false
// if nodeID is not a known direct neighbor.
func (nt *NeighborTable) SetConn(nodeID uint32, conn net.Conn) bool {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	e, ok := nt.entries[nodeID]
	if !ok {
		return false
	}
	e.conn = conn
	return true
}

// Conn returns the current connection to nodeID, if any.
func (nt *NeighborTable) Conn(nodeID uint32) (net.Conn, bool) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	e, ok := nt.entries[nodeID]
	if !ok || e.conn == nil {
		return nil, false
	}
	return e.conn, true
}

// Host returns the dialable hostname recorded for nodeID.
func (nt *NeighborTable) Host(nodeID uint32) (string, bool) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	e, ok := nt.entries[nodeID]
	if !ok {
		return "", false
	}
	return e.host, true
}

// IDs returns every direct-neighbor node ID, in no particular order.
func (nt *NeighborTable) IDs() []uint32 {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	out := make([]uint32, 0, len(nt.entries))
	for id := range nt.entries {
		out = append(out, id)
	}
	return out
}

// Conns returns every currently-established connection.
func (nt *NeighborTable) Conns() []net.Conn {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	out := make([]net.Conn, 0, len(nt.entries))
	for _, e := range nt.entries {
		if e.conn != nil {
			out = append(out, e.conn)
		}
	}
	return out
}

// Close closes every established connection.
func (nt *NeighborTable) Close() {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	for _, e := range nt.entries {
		if e.conn != nil {
			e.conn.Close()
		}
	}
}
