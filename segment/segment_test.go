package segment_test

import (
	"bytes"
	"testing"

	"github.com/srtnet/srtnet/segment"
)

func TestMarshalParseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"even", []byte("abcd")},
		{"odd", []byte("abcde")},
		{"delimiter-like", []byte("has !& and !# inside")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seg := segment.Segment{
				SrcPort: 87,
				DstPort: 88,
				Type:    segment.DATA,
				SeqNum:  1234,
				AckNum:  5678,
				Data:    tc.data,
			}
			buf := make([]byte, seg.Len())
			n, err := seg.Marshal(buf)
			if err != nil {
				t.Fatal(err)
			}
			if n != seg.Len() {
				t.Fatalf("short write: %d != %d", n, seg.Len())
			}
			got, err := segment.Parse(buf[:n])
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got.SrcPort != seg.SrcPort || got.DstPort != seg.DstPort ||
				got.Type != seg.Type || got.SeqNum != seg.SeqNum || got.AckNum != seg.AckNum {
				t.Fatalf("header mismatch: got %+v want %+v", got, seg)
			}
			if !bytes.Equal(got.Data, tc.data) {
				t.Fatalf("data mismatch: got %q want %q", got.Data, tc.data)
			}
		})
	}
}

func TestChecksumDetectsBitFlip(t *testing.T) {
	seg := segment.Segment{SrcPort: 1, DstPort: 2, Type: segment.SYN, SeqNum: 10, AckNum: 0}
	buf := make([]byte, seg.Len())
	if _, err := seg.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	if !segment.CheckChecksum(buf) {
		t.Fatal("expected valid checksum on freshly marshaled segment")
	}
	for i := range buf {
		for bit := 0; bit < 8; bit++ {
			flipped := bytes.Clone(buf)
			flipped[i] ^= 1 << uint(bit)
			if segment.CheckChecksum(flipped) {
				t.Fatalf("single bit flip at byte %d bit %d went undetected", i, bit)
			}
		}
	}
}

func TestPayloadTooLarge(t *testing.T) {
	seg := segment.Segment{Data: make([]byte, segment.MaxSegLen+1)}
	buf := make([]byte, seg.Len())
	_, err := seg.Marshal(buf)
	if err != segment.ErrPayloadSize {
		t.Fatalf("expected ErrPayloadSize, got %v", err)
	}
}
