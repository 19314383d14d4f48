package datalink

import (
	"context"
	"time"
)

// GoBackN is the pipelined sliding-window protocol: up to WindowSize
// frames may be outstanding at once, a single timer covers the oldest
// of them, and a timeout resends the entire outstanding batch. It is
// structurally the same algorithm as package srt's client send window,
// run here over a single simulated link instead of a multi-hop network.
type GoBackN struct {
	WindowSize uint32
	Timeout    time.Duration
}

// between reports whether b lies in the circular range [a, c).
func between(a, b, c uint32) bool {
	return (a <= b && b < c) || (c < a && b < c) || (c < a && a <= b)
}

// Run drives one end of a duplex Go-Back-N link: it pipelines outbound
// packets up to WindowSize, retransmits the whole outstanding window on
// a single cumulative timeout, and cumulatively acknowledges each
// inbound data frame as soon as it arrives.
func (g GoBackN) Run(ctx context.Context, phy PhysicalLayer, net NetworkLayer) error {
	modulus := g.WindowSize + 1
	var nextFrameToSend, ackExpected, frameExpected uint32
	buffer := make([][]byte, modulus)
	var nbuffered uint32

	type arrival struct {
		f   Frame
		err error
	}
	inbound := make(chan arrival)
	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			f, err := phy.Recv(recvCtx)
			if recvCtx.Err() != nil {
				return
			}
			select {
			case inbound <- arrival{f, err}:
			case <-recvCtx.Done():
				return
			}
		}
	}()

	sendData := func(frameNr uint32) error {
		return phy.Send(ctx, Frame{Kind: DataFrame, Seq: frameNr, Ack: (frameExpected + g.WindowSize) % modulus, Info: buffer[frameNr]})
	}

	timer := time.NewTimer(g.Timeout)
	if !timer.Stop() {
		<-timer.C
	}
	timerRunning := false
	outbound := net.Outbound()

	for {
		if nbuffered >= g.WindowSize {
			outbound = nil // disable_network_layer: window full
		} else {
			outbound = net.Outbound()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case data, ok := <-outbound:
			if !ok {
				return nil
			}
			buffer[nextFrameToSend] = data
			if err := sendData(nextFrameToSend); err != nil {
				return err
			}
			nextFrameToSend = (nextFrameToSend + 1) % modulus
			nbuffered++
			if !timerRunning {
				timer.Reset(g.Timeout)
				timerRunning = true
			}

		case a := <-inbound:
			if a.err != nil {
				continue // cksum_err
			}
			if a.f.Kind == DataFrame {
				if a.f.Seq == frameExpected {
					net.Deliver(a.f.Info)
					frameExpected = (frameExpected + 1) % modulus
				}
				// Acknowledge immediately rather than waiting for this
				// end's own next outbound packet, so a purely one-way
				// flow of data still drains the sender's window.
				if err := phy.Send(ctx, Frame{Kind: AckFrame, Ack: (frameExpected + g.WindowSize) % modulus}); err != nil {
					return err
				}
			}
			for nbuffered > 0 && between(ackExpected, a.f.Ack, nextFrameToSend) {
				ackExpected = (ackExpected + 1) % modulus
				nbuffered--
				if timerRunning {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timerRunning = false
				}
			}
			if nbuffered > 0 && !timerRunning {
				timer.Reset(g.Timeout)
				timerRunning = true
			}

		case <-timer.C:
			timerRunning = false
			nextFrameToSend = ackExpected
			n := nbuffered
			for i := uint32(0); i < n; i++ {
				if err := sendData(nextFrameToSend); err != nil {
					return err
				}
				nextFrameToSend = (nextFrameToSend + 1) % modulus
			}
			if nbuffered > 0 {
				timer.Reset(g.Timeout)
				timerRunning = true
			}
		}
	}
}
