package framing_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/srtnet/srtnet/framing"
)

func TestScannerRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(""),
		[]byte("hello world"),
		[]byte("has !& start delim inside"),
		[]byte("has !# end delim inside"),
		[]byte("has !! doubled bang"),
		[]byte("!&!#!&!#"),
		bytes.Repeat([]byte{'!'}, 32),
	}

	var stream []byte
	for _, p := range payloads {
		stream = framing.Append(stream, p)
	}

	var sc framing.Scanner
	var got [][]byte
	sc.FeedBytes(stream, func(frame []byte) {
		got = append(got, bytes.Clone(frame))
	})

	if len(got) != len(payloads) {
		t.Fatalf("recovered %d frames, want %d", len(got), len(payloads))
	}
	for i, want := range payloads {
		if !bytes.Equal(got[i], want) {
			t.Fatalf("frame %d: got %q want %q", i, got[i], want)
		}
	}
}

func TestScannerByteAtATime(t *testing.T) {
	stream := framing.Append(nil, []byte("payload with !& and !# noise"))
	var sc framing.Scanner
	var frames [][]byte
	for _, b := range stream {
		if frame, ok := sc.Feed(b); ok {
			frames = append(frames, bytes.Clone(frame))
		}
	}
	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(frames))
	}
	if string(frames[0]) != "payload with !& and !# noise" {
		t.Fatalf("unexpected frame: %q", frames[0])
	}
}

func TestScannerIgnoresPreFrameNoise(t *testing.T) {
	stream := append([]byte("garbage!&before"), framing.Append(nil, []byte("real"))...)
	var sc framing.Scanner
	var frames [][]byte
	sc.FeedBytes(stream, func(frame []byte) {
		frames = append(frames, bytes.Clone(frame))
	})
	if len(frames) != 1 || string(frames[0]) != "real" {
		t.Fatalf("got %q, want single frame %q", frames, "real")
	}
}

func TestScannerFuzzRandomDelimiterNoise(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	alphabet := []byte("ab!&#c")
	for trial := 0; trial < 200; trial++ {
		n := r.Intn(20)
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = alphabet[r.Intn(len(alphabet))]
		}
		stream := framing.Append(nil, payload)
		var sc framing.Scanner
		var frames [][]byte
		sc.FeedBytes(stream, func(frame []byte) {
			frames = append(frames, bytes.Clone(frame))
		})
		if len(frames) != 1 {
			t.Fatalf("trial %d: payload %q produced %d frames, want 1", trial, payload, len(frames))
		}
		if !bytes.Equal(frames[0], payload) {
			t.Fatalf("trial %d: payload %q recovered as %q", trial, payload, frames[0])
		}
	}
}
