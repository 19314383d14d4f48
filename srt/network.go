package srt

import "github.com/srtnet/srtnet/segment"

// Network is the transport-to-network shim (the SNP encapsulation this
// package needs): it hands a fully-formed segment to the node addressed
// by dstNode for delivery. NewRoutedTransport adapts a *routing.Router to
// this interface by marshaling each segment; the router then wraps it
// into snp.Packet{Type: snp.TypeSNP}.
type Network interface {
	SendSegment(dstNode uint32, seg segment.Segment) error
}
