// ABOUTME: Playback start time scheduling against the shared clock
// ABOUTME: Combines user offsets with the negotiated output latency
package player

import (
	"github.com/aircast-audio/aircast-go/internal/clock"
)

// ComputeStart computes the shared-time value at which the receiver should
// render the first frame. base is the requested absolute start, or zero to
// start from the clock's current reading. The negotiated latency is
// subtracted so the perceptual start lands on the requested time. The result
// may lie in the past; the receiver then starts as soon as possible.
func ComputeStart(c clock.Clock, base clock.NTP, waitMs uint64, latencyTicks uint32, rate int) clock.NTP {
	if base == 0 {
		base = c.Now()
	}
	return base + clock.MillisToNTP(waitMs) - clock.TicksToNTP(uint64(latencyTicks), rate)
}
