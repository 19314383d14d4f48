package snp_test

import (
	"bytes"
	"testing"

	"github.com/srtnet/srtnet/snp"
)

func TestPacketRoundTrip(t *testing.T) {
	pkt := snp.Packet{
		SrcNodeID: 1,
		DstNodeID: snp.BroadcastNodeID,
		Type:      snp.TypeRouteUpdate,
		Payload:   []byte("hello"),
	}
	buf := make([]byte, pkt.Len())
	n, err := pkt.Marshal(buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := snp.Parse(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if got.SrcNodeID != pkt.SrcNodeID || got.DstNodeID != pkt.DstNodeID || got.Type != pkt.Type {
		t.Fatalf("header mismatch: %+v", got)
	}
	if !bytes.Equal(got.Payload, pkt.Payload) {
		t.Fatalf("payload mismatch: %q", got.Payload)
	}
}

func TestRouteUpdateRoundTrip(t *testing.T) {
	ru := snp.RouteUpdate{Entries: []snp.RouteEntry{
		{NodeID: 1, Cost: 0},
		{NodeID: 2, Cost: 1},
		{NodeID: 3, Cost: snp.InfiniteCost},
	}}
	buf := make([]byte, ru.Len())
	n, err := ru.Marshal(buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := snp.ParseRouteUpdate(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Entries) != len(ru.Entries) {
		t.Fatalf("entry count mismatch: %d != %d", len(got.Entries), len(ru.Entries))
	}
	for i := range ru.Entries {
		if got.Entries[i] != ru.Entries[i] {
			t.Fatalf("entry %d mismatch: %+v != %+v", i, got.Entries[i], ru.Entries[i])
		}
	}
}
