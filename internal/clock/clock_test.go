// ABOUTME: Tests for NTP time conversions and the system clock
// ABOUTME: Covers round-trips, monotonicity, and NTP file persistence
package clock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMillisNTPRoundTrip(t *testing.T) {
	// One second is exact in the fixed-point representation
	ntp := MillisToNTP(1000)
	if uint64(ntp) != 1<<32 {
		t.Errorf("expected 1000ms to be 1<<32, got %d", uint64(ntp))
	}

	if ms := NTPToMillis(ntp); ms != 1000 {
		t.Errorf("expected 1000ms back, got %d", ms)
	}
}

func TestTicksRoundTripAt44100(t *testing.T) {
	// 1000ms at 44100Hz is exactly 44100 ticks and converts back exactly
	ticks := MillisToTicks(1000, 44100)
	if ticks != 44100 {
		t.Errorf("expected 44100 ticks, got %d", ticks)
	}

	ntp := TicksToNTP(ticks, 44100)
	if uint64(ntp) != 1<<32 {
		t.Errorf("expected 44100 ticks at 44100Hz to be one NTP second, got %d", uint64(ntp))
	}

	if back := NTPToTicks(ntp, 44100); back != 44100 {
		t.Errorf("expected 44100 ticks back, got %d", back)
	}

	if ms := TicksToMillis(ticks, 44100); ms != 1000 {
		t.Errorf("expected 1000ms back, got %d", ms)
	}
}

func TestConversionTruncation(t *testing.T) {
	// General round-trips are exact within truncation of one tick
	for _, ticks := range []uint64{1, 351, 352, 11025, 88200} {
		back := NTPToTicks(TicksToNTP(ticks, 44100), 44100)
		diff := int64(ticks) - int64(back)
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			t.Errorf("ticks %d round-tripped to %d", ticks, back)
		}
	}
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock()

	last := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now < last {
			t.Fatalf("clock went backwards: %d < %d", uint64(now), uint64(last))
		}
		last = now
	}
}

func TestNTPFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.ntp")

	c := NewSystemClock()
	if err := WriteNTPFile(path, c); err != nil {
		t.Fatalf("WriteNTPFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 || data[0] == '-' || data[0] == '0' {
		t.Errorf("expected positive decimal integer, got %q", data)
	}

	value, err := ReadNTPFile(path)
	if err != nil {
		t.Fatalf("ReadNTPFile: %v", err)
	}
	if value == 0 {
		t.Error("expected non-zero NTP value")
	}
}

func TestReadNTPFileMissing(t *testing.T) {
	if _, err := ReadNTPFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadNTPFileTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "start.ntp")
	if err := os.WriteFile(path, []byte("12345\n"), 0644); err != nil {
		t.Fatal(err)
	}

	value, err := ReadNTPFile(path)
	if err != nil {
		t.Fatalf("ReadNTPFile: %v", err)
	}
	if value != 12345 {
		t.Errorf("expected 12345, got %d", value)
	}
}
