// ABOUTME: Shared NTP time domain and audio unit conversions
// ABOUTME: Converts between milliseconds, sample ticks, and 64-bit NTP values
package clock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NTP is a 64-bit fixed-point timestamp in the shared clock domain: the upper
// 32 bits count seconds since 1900, the lower 32 bits the fraction of a
// second. The value wraps at the 64-bit boundary; sessions are assumed short
// enough that wraparound never occurs within one.
type NTP uint64

// Offset between the NTP epoch (1900) and the Unix epoch (1970).
const epochOffset = 2208988800

// NTPToMillis converts an NTP duration to milliseconds, truncating.
func NTPToMillis(ntp NTP) uint64 {
	return ((uint64(ntp) >> 10) * 1000) >> 22
}

// MillisToNTP converts milliseconds to an NTP duration, truncating.
func MillisToNTP(ms uint64) NTP {
	return NTP(((ms << 22) / 1000) << 10)
}

// NTPToTicks converts an NTP duration to sample ticks at the given rate.
func NTPToTicks(ntp NTP, rate int) uint64 {
	return ((uint64(ntp) >> 16) * uint64(rate)) >> 16
}

// TicksToNTP converts sample ticks at the given rate to an NTP duration.
func TicksToNTP(ticks uint64, rate int) NTP {
	return NTP(((ticks << 16) / uint64(rate)) << 16)
}

// MillisToTicks converts milliseconds to sample ticks at the given rate.
func MillisToTicks(ms uint64, rate int) uint64 {
	return ms * uint64(rate) / 1000
}

// TicksToMillis converts sample ticks at the given rate to milliseconds.
func TicksToMillis(ticks uint64, rate int) uint64 {
	return NTPToMillis(TicksToNTP(ticks, rate))
}

// Seconds renders the timestamp as "seconds.fraction" for status lines.
func (n NTP) Seconds() string {
	return fmt.Sprintf("%d.%d", uint32(n>>32), uint32(n))
}

// Clock reads the shared time domain. The streaming loop takes a Clock so
// tests can substitute synthetic time.
type Clock interface {
	Now() NTP
}

// SystemClock reads the wall clock and clamps readings so they never go
// backwards within a session. It assumes the host clock is already
// synchronized with the receiver's clock domain.
type SystemClock struct {
	mu   sync.Mutex
	last NTP
}

// NewSystemClock creates a system-backed clock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns the current NTP time, monotonically non-decreasing.
func (c *SystemClock) Now() NTP {
	now := time.Now()
	sec := uint64(now.Unix()) + epochOffset
	frac := (uint64(now.Nanosecond()) << 32) / 1e9
	ntp := NTP(sec<<32 | frac)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ntp < c.last {
		ntp = c.last
	}
	c.last = ntp
	return ntp
}

// WriteNTPFile writes the clock's current reading to path as a decimal
// integer, one value per file.
func WriteNTPFile(path string, c Clock) error {
	value := strconv.FormatUint(uint64(c.Now()), 10)
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write ntp file: %w", err)
	}
	return nil
}

// ReadNTPFile reads a decimal NTP value previously written with WriteNTPFile.
func ReadNTPFile(path string) (NTP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read ntp file: %w", err)
	}
	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ntp file %s: %w", path, err)
	}
	return NTP(value), nil
}
