package srt

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srtnet/srtnet/internal"
	"github.com/srtnet/srtnet/metrics"
	"github.com/srtnet/srtnet/segment"
)

// ClientState is the state of a client-side transport control block.
type ClientState uint8

const (
	ClientClosed ClientState = iota
	ClientSynSent
	ClientConnected
	ClientFinWait
)

func (s ClientState) String() string {
	switch s {
	case ClientClosed:
		return "CLOSED"
	case ClientSynSent:
		return "SYN_SENT"
	case ClientConnected:
		return "CONNECTED"
	case ClientFinWait:
		return "FIN_WAIT"
	default:
		return "INVALID"
	}
}

type pendingSegment struct {
	seq    uint32
	data   []byte
	sentAt time.Time
}

// ClientTCB is a client-side SRT socket: it drives the SYN/SYNACK
// handshake, pumps a Go-Back-N send window with a single cumulative
// retransmit timer, and the FIN/FINACK teardown.
type ClientTCB struct {
	internal.Logger

	ID uuid.UUID

	opts    Options
	network Network

	mu         sync.Mutex
	state      ClientState
	clientPort uint16
	serverPort uint16
	serverNode uint32

	sendBase uint32 // oldest unacknowledged sequence number
	nextSeq  uint32 // next sequence number to assign
	unacked  []pendingSegment
	batch    []pendingSegment // scratch reused by retransmitIfStale

	signal chan struct{}
	done   chan struct{}

	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Registry
}

// NewClientTCB constructs an unconnected client TCB bound to clientPort.
func NewClientTCB(clientPort uint16, network Network, opts Options, log *slog.Logger) *ClientTCB {
	return &ClientTCB{
		Logger:     internal.Logger{Log: log},
		ID:         uuid.New(),
		opts:       opts,
		network:    network,
		state:      ClientClosed,
		clientPort: clientPort,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (c *ClientTCB) wake() {
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// State returns the TCB's current state.
func (c *ClientTCB) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect performs the SYN/SYNACK handshake against (serverNode,
// serverPort), retrying up to Options.SynMaxRetry times on timeout.
func (c *ClientTCB) Connect(ctx context.Context, serverNode uint32, serverPort uint16) error {
	c.mu.Lock()
	if c.state != ClientClosed {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.serverNode = serverNode
	c.serverPort = serverPort
	c.state = ClientSynSent
	c.nextSeq = initialSeqNum()
	c.sendBase = c.nextSeq
	syn := segment.Segment{SrcPort: c.clientPort, DstPort: serverPort, Type: segment.SYN, SeqNum: c.nextSeq}
	c.mu.Unlock()

	for attempt := 0; attempt < c.opts.SynMaxRetry; attempt++ {
		if err := c.network.SendSegment(serverNode, syn); err != nil {
			return err
		}
		c.trace("srt:client syn sent", slog.Int("attempt", attempt))
		select {
		case <-c.signal:
			c.mu.Lock()
			connected := c.state == ClientConnected
			c.mu.Unlock()
			if connected {
				return nil
			}
		case <-time.After(c.opts.SynTimeout):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.state = ClientClosed
	c.mu.Unlock()
	return ErrConnectTimeout
}

func (c *ClientTCB) trace(msg string, attrs ...slog.Attr) { c.Logger.Debug(msg, attrs...) }

// Send splits data into MaxSegLen-sized segments, transmits each as soon
// as the GBN window has room, and returns once every segment has been
// handed to the network layer (not necessarily acknowledged).
func (c *ClientTCB) Send(ctx context.Context, data []byte) (int, error) {
	sent := 0
	for len(data) > 0 {
		n := segment.MaxSegLen
		if n > len(data) {
			n = len(data)
		}
		chunk := data[:n]
		data = data[n:]

		for {
			c.mu.Lock()
			if c.state != ClientConnected {
				c.mu.Unlock()
				return sent, ErrNotConnected
			}
			if len(c.unacked) < c.opts.GBNWindowSize {
				break
			}
			c.mu.Unlock()
			select {
			case <-c.signal:
			case <-time.After(c.opts.SendPollInterval):
			case <-ctx.Done():
				return sent, ctx.Err()
			}
		}
		seq := c.nextSeq
		c.nextSeq++
		seg := segment.Segment{SrcPort: c.clientPort, DstPort: c.serverPort, Type: segment.DATA, SeqNum: seq, Data: append([]byte(nil), chunk...)}
		c.unacked = append(c.unacked, pendingSegment{seq: seq, data: seg.Data, sentAt: time.Now()})
		serverNode := c.serverNode
		windowOccupancy := len(c.unacked)
		c.mu.Unlock()

		if err := c.network.SendSegment(serverNode, seg); err != nil {
			return sent, err
		}
		if c.Metrics != nil {
			c.Metrics.SegmentsSent.Inc()
			c.Metrics.GBNWindowOccupancy.Set(float64(windowOccupancy))
		}
		sent += n
	}
	return sent, nil
}

// RunRetransmitDaemon watches the oldest unacked segment's age and
// retransmits the whole outstanding window once it exceeds DataTimeout,
// per the single-cumulative-timer Go-Back-N retransmission model. It
// runs until ctx is cancelled or the TCB closes.
func (c *ClientTCB) RunRetransmitDaemon(ctx context.Context) {
	ticker := time.NewTicker(c.opts.DataTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.retransmitIfStale()
		}
	}
}

func (c *ClientTCB) retransmitIfStale() {
	c.mu.Lock()
	if c.state != ClientConnected || len(c.unacked) == 0 {
		c.mu.Unlock()
		return
	}
	if time.Since(c.unacked[0].sentAt) < c.opts.DataTimeout {
		c.mu.Unlock()
		return
	}
	serverNode, serverPort, clientPort := c.serverNode, c.serverPort, c.clientPort
	internal.SliceReuse(&c.batch, len(c.unacked))
	c.batch = append(c.batch, c.unacked...)
	now := time.Now()
	for i := range c.unacked {
		c.unacked[i].sentAt = now
	}
	c.mu.Unlock()

	c.Warn("retransmitting GBN window", slog.Int("n", len(c.batch)))
	for _, p := range c.batch {
		seg := segment.Segment{SrcPort: clientPort, DstPort: serverPort, Type: segment.DATA, SeqNum: p.seq, Data: p.data}
		_ = c.network.SendSegment(serverNode, seg)
	}
	if c.Metrics != nil {
		c.Metrics.SegmentsRetransmitted.Add(float64(len(c.batch)))
	}
}

// HandleSegment processes an incoming segment addressed to this TCB
// (SYNACK, DATAACK, or FINACK).
func (c *ClientTCB) HandleSegment(seg segment.Segment) {
	switch seg.Type {
	case segment.SYNACK:
		c.mu.Lock()
		if c.state == ClientSynSent {
			c.state = ClientConnected
		}
		c.mu.Unlock()
		c.wake()
	case segment.DATAACK:
		c.mu.Lock()
		if seg.AckNum > c.sendBase {
			drop := 0
			for drop < len(c.unacked) && c.unacked[drop].seq < seg.AckNum {
				drop++
			}
			c.unacked = c.unacked[drop:]
			c.sendBase = seg.AckNum
		}
		c.mu.Unlock()
		c.wake()
	case segment.FINACK:
		c.mu.Lock()
		if c.state == ClientFinWait {
			c.state = ClientClosed
		}
		c.mu.Unlock()
		c.wake()
	}
}

// Disconnect sends FIN and waits for FINACK, retrying up to
// Options.FinMaxRetry times on timeout.
func (c *ClientTCB) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != ClientConnected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.state = ClientFinWait
	fin := segment.Segment{SrcPort: c.clientPort, DstPort: c.serverPort, Type: segment.FIN, SeqNum: c.nextSeq}
	serverNode := c.serverNode
	c.mu.Unlock()

	for attempt := 0; attempt < c.opts.FinMaxRetry; attempt++ {
		if err := c.network.SendSegment(serverNode, fin); err != nil {
			return err
		}
		select {
		case <-c.signal:
			c.mu.Lock()
			closed := c.state == ClientClosed
			c.mu.Unlock()
			if closed {
				close(c.done)
				return nil
			}
		case <-time.After(c.opts.FinTimeout):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.state = ClientClosed
	c.mu.Unlock()
	close(c.done)
	return ErrDisconnectTimeout
}

// LocalPort returns the bound client port.
func (c *ClientTCB) LocalPort() uint16 { return c.clientPort }
