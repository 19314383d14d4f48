package srt

import "errors"

var (
	ErrNotConnected      = errors.New("srt: socket not connected")
	ErrAlreadyConnected  = errors.New("srt: socket already connected")
	ErrConnectTimeout    = errors.New("srt: connect handshake timed out")
	ErrDisconnectTimeout = errors.New("srt: disconnect handshake timed out")
	ErrClosed            = errors.New("srt: socket closed")
	ErrNoFreePort        = errors.New("srt: no free client port")
	ErrPortInUse         = errors.New("srt: port already bound")
	ErrUnknownPort       = errors.New("srt: unknown local port")
)
