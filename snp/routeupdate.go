package snp

import (
	"encoding/binary"
	"errors"
)

// RouteEntry is a single {nodeID, cost} pair carried in a route-update record.
type RouteEntry struct {
	NodeID uint32
	Cost   uint32
}

// RouteUpdate is the control-plane payload broadcast by the route-update
// daemon: the sender's self row of the distance-vector table, one entry
// per known destination.
type RouteUpdate struct {
	Entries []RouteEntry
}

const routeEntrySize = 8 // nodeID (4) + cost (4)

var ErrShortRouteUpdate = errors.New("snp: route update buffer too short")

// Len returns the wire size of the route-update record.
func (ru *RouteUpdate) Len() int { return 4 + len(ru.Entries)*routeEntrySize }

// Marshal encodes ru (entryNum followed by entryNum {nodeID,cost} pairs) into dst.
func (ru *RouteUpdate) Marshal(dst []byte) (int, error) {
	n := ru.Len()
	if len(dst) < n {
		return 0, ErrShortRouteUpdate
	}
	binary.BigEndian.PutUint32(dst[0:4], uint32(len(ru.Entries)))
	off := 4
	for _, e := range ru.Entries {
		binary.BigEndian.PutUint32(dst[off:off+4], e.NodeID)
		binary.BigEndian.PutUint32(dst[off+4:off+8], e.Cost)
		off += routeEntrySize
	}
	return n, nil
}

// ParseRouteUpdate decodes a RouteUpdate from src.
func ParseRouteUpdate(src []byte) (RouteUpdate, error) {
	if len(src) < 4 {
		return RouteUpdate{}, ErrShortRouteUpdate
	}
	entryNum := binary.BigEndian.Uint32(src[0:4])
	need := 4 + int(entryNum)*routeEntrySize
	if len(src) < need {
		return RouteUpdate{}, ErrShortRouteUpdate
	}
	ru := RouteUpdate{Entries: make([]RouteEntry, entryNum)}
	off := 4
	for i := range ru.Entries {
		ru.Entries[i] = RouteEntry{
			NodeID: binary.BigEndian.Uint32(src[off : off+4]),
			Cost:   binary.BigEndian.Uint32(src[off+4 : off+8]),
		}
		off += routeEntrySize
	}
	return ru, nil
}
