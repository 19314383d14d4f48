// Package datalink is a reference catalog of the classic sliding-window
// data-link protocols (Tanenbaum's utopia, stop-and-wait, PAR, one-bit
// window, and Go-Back-N), reworked from their textbook C form into
// goroutines driven by a small PhysicalLayer/NetworkLayer abstraction
// instead of a global wait_for_event loop. They exist as a teaching
// complement to package srt: srt's own Go-Back-N sender/receiver is the
// same algorithm as GoBackN here, generalized to a real multi-hop
// network instead of a single simulated link.
package datalink

import (
	"context"
	"errors"
)

// FrameKind identifies the purpose of a link-layer Frame.
type FrameKind uint8

const (
	DataFrame FrameKind = iota
	AckFrame
	NakFrame
)

func (k FrameKind) String() string {
	switch k {
	case DataFrame:
		return "DATA"
	case AckFrame:
		return "ACK"
	case NakFrame:
		return "NAK"
	default:
		return "INVALID"
	}
}

// Frame is a single link-layer frame: a sequence number, a piggybacked
// acknowledgment, and (for DataFrame) the payload handed up from the
// network layer.
type Frame struct {
	Kind FrameKind
	Seq  uint32
	Ack  uint32
	Info []byte
}

// ErrChecksum is returned by PhysicalLayer.Recv for a frame that
// arrived corrupted, the cksum_err event of the original protocols.
var ErrChecksum = errors.New("datalink: frame failed checksum")

// PhysicalLayer is the simulated wire a protocol runs over: to_physical_layer
// and from_physical_layer, reworked as blocking calls instead of a global
// event loop.
type PhysicalLayer interface {
	Send(ctx context.Context, f Frame) error
	// Recv blocks until a frame arrives. It returns ErrChecksum (with a
	// zero Frame) for the cksum_err event; any other error aborts the run.
	Recv(ctx context.Context) (Frame, error)
}

// NetworkLayer is the local application above the link: Outbound is
// network_layer_ready/from_network_layer, a channel of packets waiting
// to go out; Deliver is to_network_layer, handing a reassembled payload
// up to the application.
type NetworkLayer interface {
	Outbound() <-chan []byte
	Deliver(data []byte)
}
