// Package segment implements the SRT segment wire format: header layout,
// the 16-bit one's complement checksum, and segment (de)serialization.
//
// The checksum algorithm is the same running one's-complement sum with
// end-around carry used throughout the lneto packages for TCP/IP style
// checksums (see [github.com/soypat/lneto.CRC791] for the ancestor of
// this implementation); only the byte range covered differs, since SRT
// segments are not wrapped in a real IP pseudo-header.
package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size in bytes of a Segment's header.
const HeaderSize = 18

// MaxSegLen is the maximum number of payload data bytes a single segment may carry.
// It is a fixed constant of this package; package config has no setting for it.
const MaxSegLen = 1024

// Type identifies the purpose of a segment, mirroring the SRT control/data types.
type Type uint16

const (
	_      Type = iota
	SYN         // connection request
	SYNACK      // connection accepted
	FIN         // teardown request
	FINACK      // teardown accepted
	DATA        // application payload
	DATAACK     // cumulative acknowledgment
)

func (t Type) String() string {
	switch t {
	case SYN:
		return "SYN"
	case SYNACK:
		return "SYNACK"
	case FIN:
		return "FIN"
	case FINACK:
		return "FINACK"
	case DATA:
		return "DATA"
	case DATAACK:
		return "DATAACK"
	default:
		return "INVALID(" + fmt.Sprint(uint16(t)) + ")"
	}
}

var (
	ErrShortBuffer = errors.New("segment: buffer too short")
	ErrPayloadSize = errors.New("segment: payload exceeds MaxSegLen")
	ErrBadChecksum = errors.New("segment: checksum mismatch")
)

// Segment is the in-memory representation of a single SRT segment.
type Segment struct {
	SrcPort uint16
	DstPort uint16
	Type    Type
	SeqNum  uint32
	AckNum  uint32
	Data    []byte
}

// Len returns the total wire size of seg once marshaled: header plus payload.
func (seg *Segment) Len() int { return HeaderSize + len(seg.Data) }

// Marshal encodes seg into dst, which must be at least seg.Len() bytes long,
// and returns the number of bytes written (including the checksum).
// The checksum is computed over the header (with the checksum field zeroed)
// concatenated with the data, zero-padded to an even length.
func (seg *Segment) Marshal(dst []byte) (int, error) {
	if len(seg.Data) > MaxSegLen {
		return 0, ErrPayloadSize
	}
	n := seg.Len()
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	putHeader(dst, seg, 0)
	copy(dst[HeaderSize:n], seg.Data)
	cksum := Checksum(dst[:n])
	binary.BigEndian.PutUint16(dst[16:18], cksum)
	return n, nil
}

// Parse decodes a Segment from src, validating its checksum. The returned
// Segment's Data field aliases src; callers that retain the segment past
// the lifetime of src must copy it.
func Parse(src []byte) (Segment, error) {
	if len(src) < HeaderSize {
		return Segment{}, ErrShortBuffer
	}
	if !CheckChecksum(src) {
		return Segment{}, ErrBadChecksum
	}
	length := binary.BigEndian.Uint16(src[4:6])
	if int(length) > len(src)-HeaderSize {
		return Segment{}, ErrShortBuffer
	}
	seg := Segment{
		SrcPort: binary.BigEndian.Uint16(src[0:2]),
		DstPort: binary.BigEndian.Uint16(src[2:4]),
		Type:    Type(binary.BigEndian.Uint16(src[6:8])),
		SeqNum:  binary.BigEndian.Uint32(src[8:12]),
		AckNum:  binary.BigEndian.Uint32(src[12:16]),
	}
	seg.Data = src[HeaderSize : HeaderSize+int(length)]
	return seg, nil
}

// putHeader writes seg's header fields into dst[:HeaderSize], setting the
// checksum field to cksum (callers pass 0 to compute the checksum afterwards).
func putHeader(dst []byte, seg *Segment, cksum uint16) {
	binary.BigEndian.PutUint16(dst[0:2], seg.SrcPort)
	binary.BigEndian.PutUint16(dst[2:4], seg.DstPort)
	binary.BigEndian.PutUint16(dst[4:6], uint16(len(seg.Data)))
	binary.BigEndian.PutUint16(dst[6:8], uint16(seg.Type))
	binary.BigEndian.PutUint32(dst[8:12], seg.SeqNum)
	binary.BigEndian.PutUint32(dst[12:16], seg.AckNum)
	binary.BigEndian.PutUint16(dst[16:18], cksum)
}

// Checksum computes the 16-bit one's complement checksum of frame, which
// must be the full marshaled segment (header, with the checksum field
// holding whatever value is currently there, followed by data). Checksum
// treats the checksum field as zero regardless of its actual contents.
func Checksum(frame []byte) uint16 {
	var c crc791
	// Header with checksum field zeroed: bytes [0:16) then two zero bytes
	// standing in for the checksum field at [16:18), then the payload.
	c.writeEven(frame[:16])
	c.addUint16(0) // checksum field, zeroed
	body := frame[HeaderSize:]
	odd := len(body) & 1
	c.writeEven(body[:len(body)-odd])
	if odd == 1 {
		c.addUint16(uint16(body[len(body)-1]) << 8)
	}
	return ^c.folded()
}

// CheckChecksum verifies the checksum embedded in frame (a fully marshaled
// segment, checksum field included) by recomputing the ones' complement sum
// with the checksum field present; the result must be all-ones (so that its
// complement, the usual verification test, is zero).
func CheckChecksum(frame []byte) bool {
	var c crc791
	c.writeEven(frame[:16])
	c.addUint16(binary.BigEndian.Uint16(frame[16:18]))
	body := frame[HeaderSize:]
	odd := len(body) & 1
	c.writeEven(body[:len(body)-odd])
	if odd == 1 {
		c.addUint16(uint16(body[len(body)-1]) << 8)
	}
	return ^c.folded() == 0
}

// crc791 accumulates a running one's-complement sum as specified by RFC 791,
// identical in algorithm to the lneto package's CRC791 helper.
type crc791 struct {
	sum uint32
}

func (c *crc791) writeEven(buf []byte) {
	for i := 0; i < len(buf); i += 2 {
		c.sum += uint32(binary.BigEndian.Uint16(buf[i:]))
	}
}

func (c *crc791) addUint16(v uint16) {
	c.sum += uint32(v)
}

// folded reduces the accumulated 32-bit sum to a 16-bit one's-complement
// sum (end-around carry), without inverting it.
func (c *crc791) folded() uint16 {
	sum := c.sum
	sum = (sum & 0xffff) + sum>>16
	return uint16(sum + sum>>16)
}
