package datalink

import "context"

// RunUtopiaSender implements Utopia, the simplex protocol for an error-free
// link with an infinitely fast receiver: it pumps every outbound packet
// onto the wire without ever waiting for an acknowledgment.
func RunUtopiaSender(ctx context.Context, phy PhysicalLayer, net NetworkLayer) error {
	for {
		select {
		case data, ok := <-net.Outbound():
			if !ok {
				return nil
			}
			if err := phy.Send(ctx, Frame{Kind: DataFrame, Info: data}); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunUtopiaReceiver is Utopia's receiving half: every arriving frame is
// delivered straight to the network layer.
func RunUtopiaReceiver(ctx context.Context, phy PhysicalLayer, net NetworkLayer) error {
	for {
		f, err := phy.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		net.Deliver(f.Info)
	}
}
