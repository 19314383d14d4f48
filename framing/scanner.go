// Package framing implements the "!&" ... "!#" delimiter scheme used to
// chunk fixed-format structures (SRT segments, SNP packets) out of a raw
// TCP byte stream, as used between the SRT/SNP transport and the overlay
// network, and between the overlay and its neighbor links. Literal '!'
// bytes occurring inside a payload are byte-stuffed (doubled) so that the
// start/end delimiters never collide with frame contents.
package framing

import "bytes"

const (
	startDelim = "!&"
	endDelim   = "!#"
)

// state names mirror the four-state FSM of the original overlay packet
// framing code: PKTSTART1 -> PKTSTART2 -> PKTRECV -> PKTSTOP1.
type state uint8

const (
	stateStart1 state = iota // waiting for leading '!'
	stateStart2               // '!' seen, waiting for '&'
	stateRecv                 // inside payload
	stateStop1                // '!' seen inside payload, waiting for '#' or an escaped '!'
)

// Scanner extracts frames delimited by "!&" and "!#" out of a byte stream
// whose payload bytes were encoded with Append, which doubles every literal
// '!' so the delimiters can never be confused with frame content.
type Scanner struct {
	st      state
	payload []byte
}

// Reset clears the scanner's internal state, discarding any partially
// received frame.
func (s *Scanner) Reset() {
	s.st = stateStart1
	s.payload = s.payload[:0]
}

// Feed processes one incoming byte. It returns a complete frame (a slice
// valid only until the next call to Feed) and ok=true when b completes a
// frame's trailing "!#" delimiter.
func (s *Scanner) Feed(b byte) (frame []byte, ok bool) {
	switch s.st {
	case stateStart1:
		if b == startDelim[0] {
			s.st = stateStart2
		}
		// else: stay in stateStart1, discard byte (pre-frame noise).
	case stateStart2:
		switch b {
		case startDelim[1]:
			s.payload = s.payload[:0]
			s.st = stateRecv
		case '!':
			// stay in stateStart2, still waiting for '&'
		default:
			s.st = stateStart1
		}
	case stateRecv:
		if b == '!' {
			s.st = stateStop1
		} else {
			s.payload = append(s.payload, b)
		}
	case stateStop1:
		switch b {
		case endDelim[1]:
			s.st = stateStart1
			return s.payload, true
		case '!':
			// escaped literal '!'
			s.payload = append(s.payload, '!')
			s.st = stateRecv
		case startDelim[1]:
			// unescaped "!&": drop the partial frame and start a new one.
			s.payload = s.payload[:0]
			s.st = stateRecv
		default:
			// malformed stream: a '!' not followed by '!' or '#'. Drop the
			// partial frame and resynchronize on the next start delimiter.
			s.st = stateStart1
		}
	}
	return nil, false
}

// FeedBytes processes all of b and invokes emit for every frame recovered,
// in the order they completed.
func (s *Scanner) FeedBytes(b []byte, emit func(frame []byte)) {
	for _, c := range b {
		if frame, ok := s.Feed(c); ok {
			emit(frame)
		}
	}
}

// Append wraps payload with the "!&"/"!#" delimiters, byte-stuffing any
// literal '!' bytes in payload, and appends the result to dst.
func Append(dst, payload []byte) []byte {
	dst = append(dst, startDelim...)
	for _, b := range payload {
		if b == '!' {
			dst = append(dst, '!', '!')
		} else {
			dst = append(dst, b)
		}
	}
	dst = append(dst, endDelim...)
	return dst
}

// ContainsDelimiter reports whether b contains either delimiter sequence
// unescaped; used only for diagnostics since Scanner/Append handle such
// payloads correctly regardless.
func ContainsDelimiter(b []byte) bool {
	return bytes.Contains(b, []byte(startDelim)) || bytes.Contains(b, []byte(endDelim))
}
