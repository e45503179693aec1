//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: spanid.go (teacher's time-ordered correlation id generator)
//

package webhouse

import (
	"fmt"
	"sync"
	"time"
)

// minuteMask restricts the "current minute" counter to 20 bits, matching
// the five lowercase hex digits of the MMMMM field (2^20-1 == 0xFFFFF).
const minuteMask = 1<<20 - 1

// RequestIDGenerator mints request ids in the format XX_MMMMM_NNNN:
//
//   - XX: two lowercase letters derived from the current minute and the
//     within-minute sequence number.
//   - MMMMM: five lowercase hex digits of floor(unix_seconds/60) mod 2^20.
//   - NNNN: four (or more) lowercase hex digits of a within-minute
//     sequence counter, reset to 0 whenever the minute changes.
//
// The zero value is not ready to use; construct with
// [NewRequestIDGenerator]. A *RequestIDGenerator is safe for concurrent use.
type RequestIDGenerator struct {
	mu      sync.Mutex
	minute  uint32
	seq     uint32
	timeNow func() time.Time
}

// NewRequestIDGenerator returns a [*RequestIDGenerator] using timeNow as
// its clock. Pass [time.Now] in production; tests may substitute a
// virtual clock to exercise minute-rollover behavior deterministically.
func NewRequestIDGenerator(timeNow func() time.Time) *RequestIDGenerator {
	if timeNow == nil {
		timeNow = time.Now
	}
	return &RequestIDGenerator{timeNow: timeNow}
}

// Next returns the next request id. Within a single minute, successive
// calls return strictly increasing NNNN sequence values starting at 0;
// crossing a minute boundary resets the sequence to 0 and changes MMMMM.
func (g *RequestIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	minute := uint32(g.timeNow().Unix()/60) & minuteMask
	if minute != g.minute {
		g.minute = minute
		g.seq = 0
	}
	seq := g.seq
	g.seq++

	return fmt.Sprintf("%s_%05x_%04x", letterPair(minute, seq), minute, seq)
}

// letterPair derives two lowercase ASCII letters from the minute and
// sequence counters, giving the XX prefix some visual variety across
// ids sharing the same minute without adding another source of entropy.
func letterPair(minute, seq uint32) string {
	mixed := minute*2654435761 + seq
	a := byte('a' + (mixed % 26))
	b := byte('a' + ((mixed / 26) % 26))
	return string([]byte{a, b})
}
