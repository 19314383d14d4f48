package datalink

import (
	"context"
	"time"
)

// RunOneBitSlidingWindow implements protocol4: a duplex, window-size-one
// sliding window protocol where every outbound frame piggybacks an
// acknowledgment of the last frame received. Both ends of a link run the
// same loop.
func RunOneBitSlidingWindow(ctx context.Context, phy PhysicalLayer, net NetworkLayer, timeout time.Duration) error {
	var frameExpected, nextFrameToSend uint32

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

	var buffer []byte
	select {
	case d, ok := <-net.Outbound():
		if !ok {
			return nil
		}
		buffer = d
	case <-ctx.Done():
		return ctx.Err()
	}

	send := func() error {
		return phy.Send(ctx, Frame{Kind: DataFrame, Seq: nextFrameToSend, Ack: 1 - frameExpected, Info: buffer})
	}
	if err := send(); err != nil {
		return err
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a := <-inbound:
			if a.err != nil {
				break
			}
			if a.f.Seq == frameExpected {
				net.Deliver(a.f.Info)
				frameExpected ^= 1
			}
			if a.f.Ack == nextFrameToSend {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				select {
				case d, ok := <-net.Outbound():
					if !ok {
						return nil
					}
					buffer = d
				case <-ctx.Done():
					return ctx.Err()
				}
				nextFrameToSend ^= 1
			}
		case <-timer.C:
		}
		if err := send(); err != nil {
			return err
		}
		timer.Reset(timeout)
	}
}
