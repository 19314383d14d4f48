package datalink

import "context"

// RunStopAndWaitSender implements the simplex stop-and-wait protocol: the
// link is still assumed error-free, but the receiver is no longer
// infinitely fast, so the sender waits for a pacing frame from the
// receiver before sending the next one.
func RunStopAndWaitSender(ctx context.Context, phy PhysicalLayer, net NetworkLayer) error {
	for {
		var data []byte
		select {
		case d, ok := <-net.Outbound():
			if !ok {
				return nil
			}
			data = d
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := phy.Send(ctx, Frame{Kind: DataFrame, Info: data}); err != nil {
			return err
		}
		if _, err := phy.Recv(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// RunStopAndWaitReceiver delivers each arriving frame and sends back an
// empty pacing frame, letting the sender know it may send the next one.
func RunStopAndWaitReceiver(ctx context.Context, phy PhysicalLayer, net NetworkLayer) error {
	for {
		f, err := phy.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		net.Deliver(f.Info)
		if err := phy.Send(ctx, Frame{Kind: AckFrame}); err != nil {
			return err
		}
	}
}
