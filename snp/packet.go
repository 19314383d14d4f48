// Package snp implements the simple network protocol packet format used
// between SNP router daemons: a fixed header plus a payload that is either
// an SRT segment (forwarded data) or a route-update record (control plane).
package snp

import (
	"encoding/binary"
	"errors"
)

// BroadcastNodeID is the destination sentinel meaning "every neighbor".
const BroadcastNodeID = 0xFFFFFFFF

// InfiniteCost represents unreachability in distance-vector exchanges.
const InfiniteCost = 0xFFFF

// HeaderSize is the fixed size in bytes of a Packet header.
const HeaderSize = 12

// Type identifies the kind of payload carried by a Packet.
type Type uint16

const (
	_            Type = iota
	TypeSNP           // payload is an SRT segment
	TypeRouteUpdate   // payload is a route-update record
)

func (t Type) String() string {
	switch t {
	case TypeSNP:
		return "SNP"
	case TypeRouteUpdate:
		return "ROUTE_UPDATE"
	default:
		return "INVALID"
	}
}

var (
	ErrShortBuffer = errors.New("snp: buffer too short")
)

// Packet is the in-memory representation of an SNP packet.
type Packet struct {
	SrcNodeID uint32
	DstNodeID uint32
	Type      Type
	Payload   []byte
}

// Len returns the total wire size of pkt once marshaled.
func (pkt *Packet) Len() int { return HeaderSize + len(pkt.Payload) }

// Marshal encodes pkt into dst, which must be at least pkt.Len() bytes.
func (pkt *Packet) Marshal(dst []byte) (int, error) {
	n := pkt.Len()
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	binary.BigEndian.PutUint32(dst[0:4], pkt.SrcNodeID)
	binary.BigEndian.PutUint32(dst[4:8], pkt.DstNodeID)
	binary.BigEndian.PutUint16(dst[8:10], uint16(pkt.Type))
	binary.BigEndian.PutUint16(dst[10:12], uint16(len(pkt.Payload)))
	copy(dst[HeaderSize:n], pkt.Payload)
	return n, nil
}

// Parse decodes a Packet from src. The returned Packet's Payload aliases
// src; callers retaining the packet past src's lifetime must copy it.
func Parse(src []byte) (Packet, error) {
	if len(src) < HeaderSize {
		return Packet{}, ErrShortBuffer
	}
	length := binary.BigEndian.Uint16(src[10:12])
	if int(length) > len(src)-HeaderSize {
		return Packet{}, ErrShortBuffer
	}
	pkt := Packet{
		SrcNodeID: binary.BigEndian.Uint32(src[0:4]),
		DstNodeID: binary.BigEndian.Uint32(src[4:8]),
		Type:      Type(binary.BigEndian.Uint16(src[8:10])),
	}
	pkt.Payload = src[HeaderSize : HeaderSize+int(length)]
	return pkt, nil
}
