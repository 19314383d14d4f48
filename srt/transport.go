package srt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/srtnet/srtnet/internal"
	"github.com/srtnet/srtnet/metrics"
	"github.com/srtnet/srtnet/routing"
	"github.com/srtnet/srtnet/segment"
)

// MaxTransportConnections is how many consecutive candidate client ports
// a Transport probes for a free one before Dial reports ErrNoFreePort.
const MaxTransportConnections = 1024

const firstClientPort = 10000

type connKey struct {
	clientPort uint16
	serverPort uint16
}

// routerNetwork adapts a *routing.Router (which moves raw payloads) to
// the srt.Network interface (which moves marshaled Segments), so the
// transport layer never has to know about SNP packets directly.
type routerNetwork struct {
	router *routing.Router
}

func (n routerNetwork) SendSegment(dstNode uint32, seg segment.Segment) error {
	buf := make([]byte, seg.Len())
	sz, err := seg.Marshal(buf)
	if err != nil {
		return err
	}
	return n.router.SendSegment(dstNode, buf[:sz])
}

// Transport is the per-node SRT socket table: it allocates client ports,
// tracks listening and established server sockets, and demultiplexes
// inbound segments delivered by the routing layer. It implements
// routing.SegmentDeliverer.
type Transport struct {
	internal.Logger

	opts Options
	netw Network

	mu         sync.Mutex
	nextPort   uint16
	clientTCBs map[uint16]*ClientTCB
	listening  map[uint16]*ServerTCB
	connected  map[connKey]*ServerTCB

	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Registry
}

// NewTransport builds a Transport that sends outbound segments through
// netw and logs to log (which may be nil). NewRoutedTransport is the
// usual constructor in production; this one also accepts a bare Network
// for tests and alternative topologies.
func NewTransport(netw Network, opts Options, log *slog.Logger) *Transport {
	return &Transport{
		Logger:     internal.Logger{Log: log},
		opts:       opts,
		netw:       netw,
		nextPort:   firstClientPort,
		clientTCBs: make(map[uint16]*ClientTCB),
		listening:  make(map[uint16]*ServerTCB),
		connected:  make(map[connKey]*ServerTCB),
	}
}

// NewRoutedTransport builds a Transport whose outbound segments are
// wrapped in SNP packets and forwarded through router.
func NewRoutedTransport(router *routing.Router, opts Options, log *slog.Logger) *Transport {
	return NewTransport(routerNetwork{router: router}, opts, log)
}

// Dial allocates a client port and drives the SYN/SYNACK handshake
// against (serverNode, serverPort). The returned ClientTCB's retransmit
// daemon runs in the background until Disconnect completes; ctx bounds
// only the handshake and does not stop the daemon.
func (t *Transport) Dial(ctx context.Context, serverNode uint32, serverPort uint16) (*ClientTCB, error) {
	port, err := t.allocClientPort()
	if err != nil {
		return nil, err
	}
	tcb := NewClientTCB(port, t.netw, t.opts, t.Logger.Log)
	tcb.Metrics = t.Metrics

	t.mu.Lock()
	t.clientTCBs[port] = tcb
	t.mu.Unlock()

	if err := tcb.Connect(ctx, serverNode, serverPort); err != nil {
		t.mu.Lock()
		delete(t.clientTCBs, port)
		t.mu.Unlock()
		return nil, err
	}
	go tcb.RunRetransmitDaemon(context.Background())
	return tcb, nil
}

func (t *Transport) allocClientPort() (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < MaxTransportConnections; i++ {
		port := t.nextPort
		t.nextPort++
		if _, taken := t.clientTCBs[port]; !taken {
			return port, nil
		}
	}
	return 0, ErrNoFreePort
}

// Listen registers a listening server socket on serverPort, returning
// ErrPortInUse if the port is already bound.
func (t *Transport) Listen(serverPort uint16) (*ServerTCB, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, taken := t.listening[serverPort]; taken {
		return nil, ErrPortInUse
	}
	tcb := NewServerTCB(serverPort, t.netw, t.opts, t.Logger.Log)
	t.listening[serverPort] = tcb
	return tcb, nil
}

// DeliverSegment implements routing.SegmentDeliverer: it parses and
// checksum-verifies payload, then dispatches it to the addressed local
// socket. Segments that fail to parse, or that address an unknown port,
// are dropped and logged.
func (t *Transport) DeliverSegment(fromNode uint32, payload []byte) {
	seg, err := segment.Parse(payload)
	if err != nil {
		t.Warn("dropping malformed segment", slog.Uint64("from", uint64(fromNode)), slog.String("err", err.Error()))
		if t.Metrics != nil {
			t.Metrics.SegmentsDropped.WithLabelValues("malformed").Inc()
		}
		return
	}
	// seg.Data aliases payload; callers hand us a buffer we don't retain
	// past this call, so copy it before handing it to a long-lived TCB.
	if len(seg.Data) > 0 {
		seg.Data = append([]byte(nil), seg.Data...)
	}

	switch seg.Type {
	case segment.SYN:
		t.handleSYN(fromNode, seg)
	case segment.SYNACK, segment.DATAACK, segment.FINACK:
		t.mu.Lock()
		tcb := t.clientTCBs[seg.DstPort]
		t.mu.Unlock()
		if tcb == nil {
			t.Warn("segment for unknown client port", slog.Uint64("port", uint64(seg.DstPort)))
			if t.Metrics != nil {
				t.Metrics.SegmentsDropped.WithLabelValues("unknown_client_port").Inc()
			}
			return
		}
		tcb.HandleSegment(seg)
	case segment.DATA, segment.FIN:
		key := connKey{clientPort: seg.SrcPort, serverPort: seg.DstPort}
		t.mu.Lock()
		conn := t.connected[key]
		t.mu.Unlock()
		if conn == nil {
			t.Warn("segment for unknown connection", slog.Uint64("serverPort", uint64(seg.DstPort)))
			if t.Metrics != nil {
				t.Metrics.SegmentsDropped.WithLabelValues("unknown_connection").Inc()
			}
			return
		}
		conn.HandleSegment(seg)
	}
}

// handleSYN implements the gettcb2-then-gettcb1 demux the teacher's
// transport lookup mirrors from the original SRT client table search: a
// SYN is first matched against an already-established connection (the
// client retransmitted its SYN before seeing the SYNACK), and only on a
// miss does it fall back to the listening socket on the destination
// port, since the client's port is unknown to the server until this
// very segment arrives.
func (t *Transport) handleSYN(fromNode uint32, seg segment.Segment) {
	key := connKey{clientPort: seg.SrcPort, serverPort: seg.DstPort}

	t.mu.Lock()
	if conn, ok := t.connected[key]; ok {
		t.mu.Unlock()
		conn.acceptSYN(fromNode, seg, nil)
		return
	}
	listening, ok := t.listening[seg.DstPort]
	t.mu.Unlock()
	if !ok {
		t.Warn("SYN for unknown server port", slog.Uint64("port", uint64(seg.DstPort)))
		if t.Metrics != nil {
			t.Metrics.SegmentsDropped.WithLabelValues("unknown_server_port").Inc()
		}
		return
	}

	conn := newConnectedServerTCB(listening, fromNode, seg.SrcPort)
	t.mu.Lock()
	t.connected[key] = conn
	t.mu.Unlock()

	conn.acceptSYN(fromNode, seg, listening)
	go conn.RunCloseWaitDaemon(context.Background(), func() {
		t.mu.Lock()
		delete(t.connected, key)
		t.mu.Unlock()
	})
}
