package overlay

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/srtnet/srtnet/snp"
)

type recordingReceiver struct {
	mu  sync.Mutex
	got []snp.Packet
}

func (r *recordingReceiver) HandlePacket(pkt snp.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, pkt)
	return nil
}

func (r *recordingReceiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func (r *recordingReceiver) first() snp.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.got[0]
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func dialer(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// TestBootstrapTieBreakAndDelivery exercises the smaller-ID-listens,
// larger-ID-dials bootstrap tie-break between two nodes on loopback, then
// sends one packet across the established link and confirms delivery.
func TestBootstrapTieBreakAndDelivery(t *testing.T) {
	port := freePort(t)

	recvA := &recordingReceiver{}
	recvB := &recordingReceiver{}

	nodeA := &Node{
		myID:           1,
		connectionPort: port,
		receiver:       recvA,
		dialFunc:       dialer,
		nt:             &NeighborTable{entries: map[uint32]*neighborEntry{2: {nodeID: 2, host: "127.0.0.1"}}},
	}
	nodeB := &Node{
		myID:           2,
		connectionPort: port,
		receiver:       recvB,
		dialFunc:       dialer,
		nt:             &NeighborTable{entries: map[uint32]*neighborEntry{1: {nodeID: 1, host: "127.0.0.1"}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- nodeA.Bootstrap(ctx, "127.0.0.1:"+strconv.Itoa(port)) }()
	time.Sleep(50 * time.Millisecond)
	go func() { errCh <- nodeB.Bootstrap(ctx, "127.0.0.1:0") }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			t.Fatal(err)
		}
	}
	defer nodeA.Close()
	defer nodeB.Close()

	pkt := snp.Packet{SrcNodeID: 2, DstNodeID: 1, Type: snp.TypeSNP, Payload: []byte("ping")}
	if err := nodeB.SendPacket(1, pkt); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for recvA.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for packet delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := recvA.first()
	if string(got.Payload) != "ping" || got.SrcNodeID != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestSendPacketUnknownNeighbor(t *testing.T) {
	n := &Node{myID: 1, nt: &NeighborTable{entries: map[uint32]*neighborEntry{}}}
	err := n.SendPacket(99, snp.Packet{})
	if err == nil {
		t.Fatal("expected error for unknown neighbor")
	}
}
