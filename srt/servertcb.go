package srt

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srtnet/srtnet/internal"
	"github.com/srtnet/srtnet/segment"
)

// ServerState is the state of a server-side transport control block.
type ServerState uint8

const (
	ServerClosed ServerState = iota
	ServerListening
	ServerConnected
	ServerCloseWait
)

func (s ServerState) String() string {
	switch s {
	case ServerClosed:
		return "CLOSED"
	case ServerListening:
		return "LISTENING"
	case ServerConnected:
		return "CONNECTED"
	case ServerCloseWait:
		return "CLOSE_WAIT"
	default:
		return "INVALID"
	}
}

// ServerTCB is a server-side SRT socket. A listening ServerTCB accepts
// new connections off its acceptCh; each accepted connection is itself a
// ServerTCB in ServerConnected state, reassembling an in-order GBN byte
// stream into recvBuf.
type ServerTCB struct {
	internal.Logger

	ID uuid.UUID

	opts    Options
	network Network

	mu         sync.Mutex
	state      ServerState
	serverPort uint16
	clientPort uint16
	clientNode uint32

	expectedSeq uint32
	recvBuf     *internal.Ring

	acceptCh chan *ServerTCB
	signal   chan struct{}

	closeWaitDeadline time.Time
	onClose           func()
}

// NewServerTCB constructs a listening server TCB bound to serverPort.
func NewServerTCB(serverPort uint16, network Network, opts Options, log *slog.Logger) *ServerTCB {
	return &ServerTCB{
		Logger:     internal.Logger{Log: log},
		ID:         uuid.New(),
		opts:       opts,
		network:    network,
		state:      ServerListening,
		serverPort: serverPort,
		acceptCh:   make(chan *ServerTCB, 8),
		signal:     make(chan struct{}, 1),
	}
}

func newConnectedServerTCB(parent *ServerTCB, clientNode uint32, clientPort uint16) *ServerTCB {
	buf := make([]byte, 64*1024)
	conn := &ServerTCB{
		Logger:     parent.Logger,
		ID:         uuid.New(),
		opts:       parent.opts,
		network:    parent.network,
		state:      ServerConnected,
		serverPort: parent.serverPort,
		clientPort: clientPort,
		clientNode: clientNode,
		recvBuf:    &internal.Ring{Buf: buf},
		signal:     make(chan struct{}, 1),
	}
	return conn
}

func (s *ServerTCB) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// State returns the TCB's current state.
func (s *ServerTCB) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Accept blocks until a new connection arrives on a listening TCB.
func (s *ServerTCB) Accept(ctx context.Context) (*ServerTCB, error) {
	select {
	case conn := <-s.acceptCh:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acceptSYN handles an inbound SYN addressed to this connection slot:
// it records the client's ISN, replies with SYNACK, and (if this is the
// listening TCB's freshly-created connection) publishes itself on the
// listening TCB's accept channel.
func (s *ServerTCB) acceptSYN(clientNode uint32, seg segment.Segment, listening *ServerTCB) {
	s.mu.Lock()
	s.expectedSeq = seg.SeqNum
	s.mu.Unlock()

	synack := segment.Segment{SrcPort: s.serverPort, DstPort: s.clientPort, Type: segment.SYNACK, AckNum: s.expectedSeq}
	_ = s.network.SendSegment(clientNode, synack)

	if listening != nil {
		select {
		case listening.acceptCh <- s:
		default:
			s.Warn("accept backlog full, dropping pending connection")
		}
	}
}

// Recv reads reassembled, in-order data into b, blocking until data is
// available, the peer disconnects (io.EOF once the buffer drains), or
// ctx is cancelled.
func (s *ServerTCB) Recv(ctx context.Context, b []byte) (int, error) {
	for {
		s.mu.Lock()
		n, _ := s.recvBuf.Read(b)
		state := s.state
		s.mu.Unlock()
		if n > 0 {
			return n, nil
		}
		if state == ServerCloseWait || state == ServerClosed {
			return 0, io.EOF
		}
		select {
		case <-s.signal:
		case <-time.After(s.opts.RecvPollInterval):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// HandleSegment processes an incoming DATA or FIN segment for an
// established connection, implementing the GBN receiver: a segment
// matching the expected sequence number is appended and cumulatively
// acknowledged; any other sequence number re-acknowledges the current
// expected sequence number without altering the buffer.
func (s *ServerTCB) HandleSegment(seg segment.Segment) {
	switch seg.Type {
	case segment.DATA:
		s.mu.Lock()
		if s.state != ServerConnected {
			s.mu.Unlock()
			return
		}
		if seg.SeqNum == s.expectedSeq && len(seg.Data) <= s.recvBuf.Free() {
			s.recvBuf.Write(seg.Data)
			s.expectedSeq++
		}
		ack := s.expectedSeq
		clientPort, serverPort := s.clientPort, s.serverPort
		clientNode := s.clientNode
		s.mu.Unlock()
		s.wake()
		dataack := segment.Segment{SrcPort: serverPort, DstPort: clientPort, Type: segment.DATAACK, AckNum: ack}
		_ = s.network.SendSegment(clientNode, dataack)
	case segment.FIN:
		s.mu.Lock()
		if s.state != ServerConnected {
			s.mu.Unlock()
			return
		}
		s.state = ServerCloseWait
		s.closeWaitDeadline = time.Now().Add(s.opts.CloseWaitTimeout)
		clientPort, serverPort := s.clientPort, s.serverPort
		clientNode := s.clientNode
		ack := seg.SeqNum + 1
		s.mu.Unlock()
		s.wake()
		finack := segment.Segment{SrcPort: serverPort, DstPort: clientPort, Type: segment.FINACK, AckNum: ack}
		_ = s.network.SendSegment(clientNode, finack)
	}
}

// RunCloseWaitDaemon watches a CLOSE_WAIT connection and invokes onClose
// (releasing its table slot) once the close-wait timeout elapses.
func (s *ServerTCB) RunCloseWaitDaemon(ctx context.Context, onClose func()) {
	ticker := time.NewTicker(s.opts.CloseWaitTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			expired := s.state == ServerCloseWait && time.Now().After(s.closeWaitDeadline)
			if expired {
				s.state = ServerClosed
			}
			s.mu.Unlock()
			if expired {
				onClose()
				return
			}
		}
	}
}

// DebugRingLayout renders the receive ring buffer's occupied and free
// regions, for inclusion in diagnostic logging.
func (s *ServerTCB) DebugRingLayout() string {
	s.mu.Lock()
	buf, off, end := s.recvBuf.Buf, s.recvBuf.Off, s.recvBuf.End
	s.mu.Unlock()
	if buf == nil {
		return ""
	}
	var zp internal.ZonePrinter
	out, err := zp.AppendPrintZones(nil, len(buf), internal.BufferZone{Name: "recv", Start: off, End: end})
	if err != nil {
		return err.Error()
	}
	return string(out)
}

// LocalPort returns the bound server port.
func (s *ServerTCB) LocalPort() uint16 { return s.serverPort }

// RemotePort returns the connected client's port (zero on a listening TCB).
func (s *ServerTCB) RemotePort() uint16 { return s.clientPort }
