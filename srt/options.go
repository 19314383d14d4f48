package srt

import "time"

// Options bundles the tunable constants of the SRT transport: window
// size, handshake/data timers, retry bounds, and the polling cadence of
// the blocking Send/Recv calls. Every field has a sensible default
// (DefaultOptions); the config package overrides them from the node's
// configuration file.
type Options struct {
	GBNWindowSize int

	SynTimeout  time.Duration
	DataTimeout time.Duration
	FinTimeout  time.Duration

	SynMaxRetry int
	FinMaxRetry int

	CloseWaitTimeout time.Duration

	SendPollInterval time.Duration
	RecvPollInterval time.Duration
}

// DefaultOptions returns the constants used throughout the reference
// scenarios in the absence of an overriding configuration.
func DefaultOptions() Options {
	return Options{
		GBNWindowSize:    10,
		SynTimeout:       200 * time.Millisecond,
		DataTimeout:      200 * time.Millisecond,
		FinTimeout:       200 * time.Millisecond,
		SynMaxRetry:      5,
		FinMaxRetry:      5,
		CloseWaitTimeout: 2 * time.Second,
		SendPollInterval: 2 * time.Millisecond,
		RecvPollInterval: 2 * time.Millisecond,
	}
}
