// ABOUTME: Main streaming loop interleaving transfer, status, and keepalive
// ABOUTME: Polls the clock and transport until the protocol session ends
package player

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/aircast-audio/aircast-go/internal/clock"
	"github.com/aircast-audio/aircast-go/internal/raop"
)

const (
	statusIntervalMs    = 1000
	keepaliveIntervalMs = 30000

	// Short yield when an iteration moved no data, so polling does not spin
	// a core while paused or throttled.
	idleSleep = 2 * time.Millisecond
)

// Source supplies bounded chunks of audio to the loop.
type Source interface {
	// ReadChunk returns at most max bytes, truncated to whole frames, and
	// io.EOF once the input is drained.
	ReadChunk(max int) ([]byte, error)
}

// Stats counts what the loop has done so far.
type Stats struct {
	FramesSent  uint64
	StatusLines int
	Keepalives  int
}

// Loop is the single-threaded polling loop at the core of the sender. It
// owns the frame cursor and every transport call, including those triggered
// by interactive commands arriving on the command channel.
type Loop struct {
	client        raop.Client
	clk           clock.Clock
	ctrl          *Controller
	src           Source
	commands      <-chan Command
	bytesPerFrame int
	maxChunk      int

	srcDone       bool
	sessionStart  clock.NTP
	lastStatus    clock.NTP
	lastKeepalive clock.NTP
	stats         Stats
}

// NewLoop creates a streaming loop for one session. The session start and
// keepalive cursors are anchored at the clock's current reading.
func NewLoop(client raop.Client, clk clock.Clock, ctrl *Controller, src Source, commands <-chan Command, session raop.Session) *Loop {
	now := clk.Now()
	return &Loop{
		client:        client,
		clk:           clk,
		ctrl:          ctrl,
		src:           src,
		commands:      commands,
		bytesPerFrame: session.BytesPerFrame(),
		maxChunk:      raop.MaxSamplesPerChunk * session.BytesPerFrame(),
		sessionStart:  now,
		lastKeepalive: now,
	}
}

// Run polls until the transport reports the session is no longer playing or
// shutdown is signalled. A Paused local state keeps the loop alive: status
// and keepalive continue while the protocol session is up, and source
// exhaustion alone never ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	for l.client.IsPlaying() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sent, err := l.step()
		if err != nil {
			return err
		}
		if !sent {
			time.Sleep(idleSleep)
		}
	}
	return nil
}

// step runs one loop iteration: pending commands, the time-gated status and
// keepalive branches, then at most one chunk transfer.
func (l *Loop) step() (sent bool, err error) {
	if err := l.drainCommands(); err != nil {
		return false, err
	}

	now := l.clk.Now()
	latency := uint64(l.client.Latency())

	if now-l.lastStatus >= clock.MillisToNTP(statusIntervalMs) {
		l.lastStatus = now
		// Stay quiet until the latency buffer has filled, so elapsed audio
		// never reads negative.
		if l.stats.FramesSent > latency {
			played := clock.TicksToMillis(l.stats.FramesSent-latency, l.client.SampleRate())
			log.Printf("At %s (%d ms after start), played %d ms",
				now.Seconds(), clock.NTPToMillis(now-l.sessionStart), played)
			l.stats.StatusLines++
		}
	}

	if clock.NTPToMillis(now-l.lastKeepalive) >= keepaliveIntervalMs {
		log.Printf("Keep alive: at %s (%d ms after start)",
			now.Seconds(), clock.NTPToMillis(now-l.sessionStart))
		l.lastKeepalive = now
		l.stats.Keepalives++
		if err := l.client.Keepalive(); err != nil {
			return false, err
		}
	}

	if l.ctrl.State() == Playing && !l.srcDone && l.client.AcceptFrames() {
		chunk, err := l.src.ReadChunk(l.maxChunk)
		if errors.Is(err, io.EOF) {
			l.srcDone = true
		} else if err != nil {
			return false, err
		}
		if len(chunk) > 0 {
			if _, err := l.client.SendChunk(chunk); err != nil {
				return false, err
			}
			l.stats.FramesSent += uint64(len(chunk)) / uint64(l.bytesPerFrame)
			sent = true
		}
	}

	return sent, nil
}

// drainCommands applies every queued interactive command. The loop is the
// only goroutine that touches the transport, so commands serialize naturally
// against chunk transmission.
func (l *Loop) drainCommands() error {
	for {
		select {
		case cmd := <-l.commands:
			if err := l.ctrl.Apply(cmd); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// Stats returns a snapshot of the loop's counters.
func (l *Loop) Stats() Stats {
	return l.stats
}
