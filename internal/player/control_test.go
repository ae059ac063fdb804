// ABOUTME: Tests for the transport control state machine
// ABOUTME: Covers the full command/state transition table
package player

import (
	"context"
	"testing"

	"github.com/aircast-audio/aircast-go/internal/clock"
)

// fakeClock returns a fixed, test-controlled NTP reading.
type fakeClock struct {
	now clock.NTP
}

func (c *fakeClock) Now() clock.NTP { return c.now }

func (c *fakeClock) advance(ms uint64) { c.now += clock.MillisToNTP(ms) }

// fakeClient records transport calls and plays back scripted backpressure.
type fakeClient struct {
	calls      []string
	startAt    clock.NTP
	accept     bool
	acceptSeq  []bool
	playing    bool
	playLimit  int // if > 0, IsPlaying flips false after this many calls
	playCalls  int
	latency    uint32
	sampleRate int
	sentBytes  int
	sentChunks int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		accept:     true,
		playing:    true,
		latency:    11025,
		sampleRate: 44100,
	}
}

func (f *fakeClient) Connect(port int, setVolume bool) error {
	f.calls = append(f.calls, "connect")
	return nil
}

func (f *fakeClient) Disconnect() error {
	f.calls = append(f.calls, "disconnect")
	return nil
}

func (f *fakeClient) Destroy() {}

func (f *fakeClient) StartAt(start clock.NTP) error {
	f.calls = append(f.calls, "start_at")
	f.startAt = start
	return nil
}

func (f *fakeClient) Pause() error {
	f.calls = append(f.calls, "pause")
	return nil
}

func (f *fakeClient) Stop() error {
	f.calls = append(f.calls, "stop")
	return nil
}

func (f *fakeClient) Flush() error {
	f.calls = append(f.calls, "flush")
	return nil
}

func (f *fakeClient) Keepalive() error {
	f.calls = append(f.calls, "keepalive")
	return nil
}

func (f *fakeClient) AcceptFrames() bool {
	if len(f.acceptSeq) > 0 {
		next := f.acceptSeq[0]
		f.acceptSeq = f.acceptSeq[1:]
		return next
	}
	return f.accept
}

func (f *fakeClient) SendChunk(data []byte) (clock.NTP, error) {
	f.calls = append(f.calls, "send_chunk")
	f.sentBytes += len(data)
	f.sentChunks++
	return 0, nil
}

func (f *fakeClient) IsPlaying() bool {
	f.playCalls++
	if f.playLimit > 0 && f.playCalls > f.playLimit {
		f.playing = false
	}
	return f.playing
}

func (f *fakeClient) Latency() uint32 { return f.latency }

func (f *fakeClient) SampleRate() int { return f.sampleRate }

func newTestController(client *fakeClient, clk clock.Clock) (*Controller, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	return NewController(client, clk, cancel), ctx
}

func TestPauseFromPlaying(t *testing.T) {
	client := newFakeClient()
	ctrl, _ := newTestController(client, &fakeClock{now: clock.MillisToNTP(5000)})

	if err := ctrl.Apply(CmdPause); err != nil {
		t.Fatalf("Apply(pause): %v", err)
	}

	if ctrl.State() != Paused {
		t.Errorf("expected Paused, got %v", ctrl.State())
	}
	want := []string{"pause", "flush"}
	if len(client.calls) != 2 || client.calls[0] != want[0] || client.calls[1] != want[1] {
		t.Errorf("expected calls %v, got %v", want, client.calls)
	}
}

func TestPauseIsNoopWhenNotPlaying(t *testing.T) {
	client := newFakeClient()
	ctrl, _ := newTestController(client, &fakeClock{})

	ctrl.Apply(CmdPause)
	callsAfterFirst := len(client.calls)

	// Paused -> pause is a no-op
	if err := ctrl.Apply(CmdPause); err != nil {
		t.Fatalf("Apply(pause): %v", err)
	}
	if len(client.calls) != callsAfterFirst {
		t.Errorf("expected no transport calls, got %v", client.calls[callsAfterFirst:])
	}
	if ctrl.State() != Paused {
		t.Errorf("expected Paused, got %v", ctrl.State())
	}

	// Stopped -> pause is a no-op too
	ctrl.Apply(CmdStop)
	callsAfterStop := len(client.calls)
	ctrl.Apply(CmdPause)
	if len(client.calls) != callsAfterStop {
		t.Errorf("expected no transport calls from Stopped, got %v", client.calls[callsAfterStop:])
	}
	if ctrl.State() != Stopped {
		t.Errorf("expected Stopped, got %v", ctrl.State())
	}
}

func TestRestartSchedulesNewStart(t *testing.T) {
	clk := &fakeClock{now: clock.NTP(uint64(3900000000) << 32)}

	for _, prime := range []Command{CmdPause, CmdRestart} {
		client := newFakeClient()
		ctrl, _ := newTestController(client, clk)
		ctrl.Apply(prime)

		if err := ctrl.Apply(CmdRestart); err != nil {
			t.Fatalf("Apply(restart): %v", err)
		}

		if ctrl.State() != Playing {
			t.Errorf("expected Playing after restart, got %v", ctrl.State())
		}

		want := clk.now + clock.MillisToNTP(200) - clock.TicksToNTP(11025, 44100)
		if client.startAt != want {
			t.Errorf("expected start_at %d, got %d", uint64(want), uint64(client.startAt))
		}

		// Restart must not flush
		if client.calls[len(client.calls)-1] != "start_at" {
			t.Errorf("expected start_at last, got %v", client.calls)
		}
	}
}

func TestStopRequestsShutdown(t *testing.T) {
	for _, prime := range []Command{CmdRestart, CmdPause, CmdStop} {
		client := newFakeClient()
		ctrl, ctx := newTestController(client, &fakeClock{})
		ctrl.Apply(prime)

		if err := ctrl.Apply(CmdStop); err != nil {
			t.Fatalf("Apply(stop): %v", err)
		}

		if ctrl.State() != Stopped {
			t.Errorf("expected Stopped, got %v", ctrl.State())
		}

		select {
		case <-ctx.Done():
		default:
			t.Error("expected shutdown signal after stop")
		}

		// Last two transport calls are stop then flush
		n := len(client.calls)
		if n < 2 || client.calls[n-2] != "stop" || client.calls[n-1] != "flush" {
			t.Errorf("expected ...stop,flush, got %v", client.calls)
		}
	}
}
