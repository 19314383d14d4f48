package srt

import (
	"sync/atomic"
	"time"

	"github.com/srtnet/srtnet/internal"
)

var isnSeed uint32 = uint32(time.Now().UnixNano())

// initialSeqNum returns a pseudo-random initial sequence number for a new
// connection, the same xorshift generator the teacher stack uses to seed
// TCP ISNs (internal.Prand32), advanced with every call so concurrent
// connections don't collide on the same ISN.
func initialSeqNum() uint32 {
	for {
		old := atomic.LoadUint32(&isnSeed)
		next := internal.Prand32(old)
		if atomic.CompareAndSwapUint32(&isnSeed, old, next) {
			return next
		}
	}
}
