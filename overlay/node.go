// Package overlay implements the overlay network (ON) layer: it
// maintains direct TCP connections to this node's topology neighbors,
// bootstrapping the mesh with a deterministic larger-ID-accepts,
// smaller-ID-connects tie-break so that exactly one connection is made
// per neighbor pair, and forwards SNP packets read from and written to
// those links.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/srtnet/srtnet/framing"
	"github.com/srtnet/srtnet/internal"
	"github.com/srtnet/srtnet/metrics"
	"github.com/srtnet/srtnet/segment"
	"github.com/srtnet/srtnet/snp"
	"github.com/srtnet/srtnet/topology"
)

// MaxFrameLen bounds a single delimited frame read off a neighbor
// connection, guarding against an unbounded allocation on a malformed or
// hostile peer.
const MaxFrameLen = 1 << 20

var (
	ErrUnknownNeighbor = errors.New("overlay: unknown neighbor node")
	ErrFrameTooLarge   = errors.New("overlay: frame exceeds MaxFrameLen")
)

// PacketReceiver is notified of every SNP packet arriving from a
// neighbor link; it is typically a *routing.Router.
type PacketReceiver interface {
	HandlePacket(pkt snp.Packet) error
}

// Node is this host's overlay network participant: it owns the
// connections to every direct topology neighbor and shuttles SNP
// packets between them and the local routing layer.
type Node struct {
	internal.Logger

	myID           uint32
	connectionPort int
	nt             *NeighborTable
	receiver       PacketReceiver

	dialFunc func(ctx context.Context, addr string) (net.Conn, error)

	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Registry

	// Loss is optional; a nil Loss sends every frame untouched. Set it
	// from the node's configured packet loss rate to exercise the
	// transport layer's retransmission path over an otherwise-reliable
	// overlay link.
	Loss *segment.LossyLink
}

// New builds a Node for topology t. connectionPort is the TCP port the
// overlay mesh listens and dials on (CONNECTION_PORT in the original
// design).
func New(t *topology.Table, connectionPort int, receiver PacketReceiver, log *slog.Logger) *Node {
	return &Node{
		Logger:         internal.Logger{Log: log},
		myID:           t.MyNodeID(),
		connectionPort: connectionPort,
		nt:             NewNeighborTable(t),
		receiver:       receiver,
		dialFunc: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Bootstrap connects the overlay mesh: it listens on listenAddr for
// incoming connections from neighbors with a larger node ID, while
// dialing out to neighbors with a smaller node ID, mirroring the
// original tie-break rule that lets each pair of neighbors agree on
// exactly one connection without coordination. It returns once every
// neighbor is connected or ctx is cancelled.
func (n *Node) Bootstrap(ctx context.Context, listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("overlay: listen %s: %w", listenAddr, err)
	}

	var larger, smaller []uint32
	for _, id := range n.nt.IDs() {
		if id > n.myID {
			larger = append(larger, id)
		} else if id < n.myID {
			smaller = append(smaller, id)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	errCh := make(chan error, 2)

	go func() {
		defer wg.Done()
		errCh <- n.waitNeighbors(ctx, ln, len(larger))
	}()
	go func() {
		defer wg.Done()
		errCh <- n.connectNeighbors(ctx, smaller)
	}()

	wg.Wait()
	close(errCh)
	ln.Close()
	for e := range errCh {
		if e != nil {
			return e
		}
	}

	var linksUp int
	for _, id := range n.nt.IDs() {
		conn, ok := n.nt.Conn(id)
		if !ok {
			continue
		}
		linksUp++
		go n.readNeighbor(id, conn)
	}
	if n.Metrics != nil {
		n.Metrics.OverlayLinksUp.Set(float64(linksUp))
	}
	return nil
}

func (n *Node) waitNeighbors(ctx context.Context, ln net.Listener, want int) error {
	for i := 0; i < want; i++ {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		id, err := identifyPeer(conn, n.nt)
		if err != nil {
			n.Warn("rejecting unidentifiable overlay peer", slog.String("err", err.Error()))
			conn.Close()
			i--
			continue
		}
		if id < n.myID {
			n.Warn("neighbor with smaller ID connected to us, rejecting", slog.Uint64("id", uint64(id)))
			conn.Close()
			i--
			continue
		}
		n.nt.SetConn(id, conn)
	}
	return nil
}

// identifyPeer resolves an inbound connection's remote address back to a
// known neighbor node ID by matching against topology-derived hostnames;
// sufficient for the close, fully-meshed overlays this stack targets.
func identifyPeer(conn net.Conn, nt *NeighborTable) (uint32, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return 0, err
	}
	for _, id := range nt.IDs() {
		nbrHost, _ := nt.Host(id)
		if hostsMatch(nbrHost, host) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("overlay: no neighbor matches remote address %s", host)
}

func hostsMatch(configured, remote string) bool {
	if configured == remote {
		return true
	}
	addrs, err := net.LookupHost(configured)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if a == remote {
			return true
		}
	}
	return false
}

// dialRetries bounds how many times connectNeighbors backs off and
// retries a single neighbor before giving up: the peer's listener may
// not be up yet when bootstrap starts, since nothing coordinates dial
// and listen across the mesh.
const dialRetries = 8

func (n *Node) connectNeighbors(ctx context.Context, smaller []uint32) error {
	for _, id := range smaller {
		host, ok := n.nt.Host(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownNeighbor, id)
		}
		addr := net.JoinHostPort(host, strconv.Itoa(n.connectionPort))

		bo := internal.NewBackoff(internal.BackoffTCPConn)
		var conn net.Conn
		var err error
		for attempt := 0; attempt < dialRetries; attempt++ {
			conn, err = n.dialFunc(ctx, addr)
			if err == nil {
				bo.Hit()
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.Debug("dial neighbor failed, backing off", slog.Uint64("id", uint64(id)), slog.Int("attempt", attempt))
			bo.Miss()
		}
		if err != nil {
			return fmt.Errorf("overlay: dial neighbor %d at %s: %w", id, addr, err)
		}
		n.nt.SetConn(id, conn)
	}
	return nil
}

func (n *Node) readNeighbor(id uint32, conn net.Conn) {
	var sc framing.Scanner
	buf := make([]byte, 4096)
	for {
		nr, err := conn.Read(buf)
		if err != nil {
			n.Debug("neighbor link closed", slog.Uint64("id", uint64(id)), slog.String("err", err.Error()))
			return
		}
		sc.FeedBytes(buf[:nr], func(frame []byte) {
			if len(frame) > MaxFrameLen {
				n.Warn("dropping oversized frame", slog.Uint64("from", uint64(id)))
				return
			}
			pkt, err := snp.Parse(frame)
			if err != nil {
				n.Warn("dropping malformed packet", slog.Uint64("from", uint64(id)), slog.String("err", err.Error()))
				return
			}
			pkt.Payload = append([]byte(nil), pkt.Payload...)
			if err := n.receiver.HandlePacket(pkt); err != nil {
				n.Debug("packet handler error", slog.String("err", err.Error()))
			}
		})
	}
}

// SendPacket implements routing.PacketSender: it writes pkt to the
// connection for nextHop, or to every established neighbor connection
// when nextHop is snp.BroadcastNodeID. When Loss is set, each outgoing
// copy of the frame independently rolls a chance of being dropped or
// corrupted in flight, simulating an unreliable link below the
// overlay's reliable TCP transport.
func (n *Node) SendPacket(nextHop uint32, pkt snp.Packet) error {
	buf := make([]byte, pkt.Len())
	nn, err := pkt.Marshal(buf)
	if err != nil {
		return err
	}

	if nextHop == snp.BroadcastNodeID {
		var firstErr error
		for _, conn := range n.nt.Conns() {
			out := append([]byte(nil), buf[:nn]...)
			if n.Loss != nil && n.Loss.Afflict(out) {
				continue
			}
			if _, err := conn.Write(framing.Append(nil, out)); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	conn, ok := n.nt.Conn(nextHop)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNeighbor, nextHop)
	}
	out := append([]byte(nil), buf[:nn]...)
	if n.Loss != nil && n.Loss.Afflict(out) {
		return nil
	}
	_, err = conn.Write(framing.Append(nil, out))
	return err
}

// Close shuts down every neighbor connection.
func (n *Node) Close() { n.nt.Close() }
