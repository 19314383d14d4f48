package srt_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/srtnet/srtnet/segment"
	"github.com/srtnet/srtnet/srt"
)

// loopbackNetwork wires a small set of nodes' Transports together
// in-memory, standing in for the overlay+routing layers so srt's
// client/server state machines can be exercised end to end without
// involving the rest of the stack.
type loopbackNetwork struct {
	mu    sync.Mutex
	nodes map[uint32]*srt.Transport
	drop  func(dstNode uint32, seg segment.Segment) bool
}

func newLoopbackNetwork() *loopbackNetwork {
	return &loopbackNetwork{nodes: make(map[uint32]*srt.Transport)}
}

func (n *loopbackNetwork) register(id uint32, t *srt.Transport) {
	n.mu.Lock()
	n.nodes[id] = t
	n.mu.Unlock()
}

func (n *loopbackNetwork) SendSegment(dstNode uint32, seg segment.Segment) error {
	if n.drop != nil && n.drop(dstNode, seg) {
		return nil
	}
	buf := make([]byte, seg.Len())
	sz, err := seg.Marshal(buf)
	if err != nil {
		return err
	}
	n.mu.Lock()
	t := n.nodes[dstNode]
	n.mu.Unlock()
	if t == nil {
		return nil
	}
	cp := append([]byte(nil), buf[:sz]...)
	go t.DeliverSegment(0, cp)
	return nil
}

func fastOptions() srt.Options {
	o := srt.DefaultOptions()
	o.SynTimeout = 50 * time.Millisecond
	o.DataTimeout = 50 * time.Millisecond
	o.FinTimeout = 50 * time.Millisecond
	o.CloseWaitTimeout = 100 * time.Millisecond
	o.SendPollInterval = time.Millisecond
	o.RecvPollInterval = time.Millisecond
	return o
}

func TestHandshakeDataTeardown(t *testing.T) {
	net := newLoopbackNetwork()
	opts := fastOptions()

	clientTransport := srt.NewTransport(net, opts, nil)
	serverTransport := srt.NewTransport(net, opts, nil)
	net.register(1, clientTransport)
	net.register(2, serverTransport)

	listener, err := serverTransport.Listen(7)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var accepted *srt.ServerTCB
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept(ctx)
		accepted = conn
		acceptErr <- err
	}()

	client, err := clientTransport.Dial(ctx, 2, 7)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if client.State() != srt.ClientConnected {
		t.Fatalf("client state = %v, want Connected", client.State())
	}

	if err := <-acceptErr; err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted == nil {
		t.Fatal("Accept returned nil connection")
	}

	payload := []byte("the quick brown fox jumps over the lazy dog")
	if _, err := client.Send(ctx, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := make([]byte, len(payload))
	total := 0
	deadline := time.After(time.Second)
	for total < len(payload) {
		n, err := accepted.Recv(ctx, got[total:])
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		total += n
		select {
		case <-deadline:
			t.Fatal("timed out waiting for full payload")
		default:
		}
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("received %q, want %q", got, payload)
	}
	if layout := accepted.DebugRingLayout(); layout == "" {
		t.Fatal("DebugRingLayout returned empty output")
	}

	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if client.State() != srt.ClientClosed {
		t.Fatalf("client state after disconnect = %v, want Closed", client.State())
	}

	deadline2 := time.Now().Add(time.Second)
	for accepted.State() != srt.ServerCloseWait && time.Now().Before(deadline2) {
		time.Sleep(time.Millisecond)
	}
	if accepted.State() != srt.ServerCloseWait {
		t.Fatalf("server state = %v, want CloseWait", accepted.State())
	}
}

func TestDialUnknownPortTimesOut(t *testing.T) {
	net := newLoopbackNetwork()
	opts := fastOptions()
	opts.SynMaxRetry = 2

	clientTransport := srt.NewTransport(net, opts, nil)
	net.register(1, clientTransport)
	// node 2 has no registered Transport: SYNs vanish, Dial must time out.

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := clientTransport.Dial(ctx, 2, 9)
	if err != srt.ErrConnectTimeout {
		t.Fatalf("Dial err = %v, want ErrConnectTimeout", err)
	}
}

func TestRetransmitOnDroppedData(t *testing.T) {
	net := newLoopbackNetwork()
	opts := fastOptions()

	clientTransport := srt.NewTransport(net, opts, nil)
	serverTransport := srt.NewTransport(net, opts, nil)
	net.register(1, clientTransport)
	net.register(2, serverTransport)

	listener, err := serverTransport.Listen(7)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	acceptCh := make(chan *srt.ServerTCB, 1)
	go func() {
		conn, _ := listener.Accept(ctx)
		acceptCh <- conn
	}()

	client, err := clientTransport.Dial(ctx, 2, 7)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	accepted := <-acceptCh
	if accepted == nil {
		t.Fatal("no connection accepted")
	}

	var dropped bool
	var mu sync.Mutex
	net.drop = func(dstNode uint32, seg segment.Segment) bool {
		if dstNode == 2 && seg.Type == segment.DATA {
			mu.Lock()
			defer mu.Unlock()
			if !dropped {
				dropped = true
				return true // drop exactly the first DATA segment
			}
		}
		return false
	}

	payload := []byte("retransmit me")
	if _, err := client.Send(ctx, payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := make([]byte, len(payload))
	total := 0
	for total < len(payload) {
		n, err := accepted.Recv(ctx, got[total:])
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		total += n
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("received %q, want %q", got, payload)
	}
}
