// ABOUTME: Transport control state machine for interactive commands
// ABOUTME: Maps pause/restart/stop onto transport calls and local state
package player

import (
	"context"
	"log"
	"sync"

	"github.com/aircast-audio/aircast-go/internal/clock"
	"github.com/aircast-audio/aircast-go/internal/raop"
)

// State is the local playback state. It is distinct from the transport's
// session liveness: a Paused sender still holds a live protocol session.
type State int

const (
	Playing State = iota
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Command is an interactive transport command.
type Command int

const (
	CmdPause Command = iota
	CmdRestart
	CmdStop
)

// restartDelayMs is how far in the future a restart is scheduled.
const restartDelayMs = 200

// Controller owns the local playback state and every transport call a
// command triggers. Apply runs the whole read-state, decide, call-transport
// sequence under one lock so a command can never interleave with another.
type Controller struct {
	mu       sync.Mutex
	state    State
	client   raop.Client
	clk      clock.Clock
	shutdown context.CancelFunc
}

// NewController creates a controller in the Playing state. shutdown is the
// cooperative termination signal raised by stop/quit; the streaming loop
// observes it instead of being killed from the listener.
func NewController(client raop.Client, clk clock.Clock, shutdown context.CancelFunc) *Controller {
	return &Controller{
		state:    Playing,
		client:   client,
		clk:      clk,
		shutdown: shutdown,
	}
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply executes one command. Transport errors surface to the caller; stop
// always reaches the Stopped state and raises shutdown even when the
// transport calls fail.
func (c *Controller) Apply(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case CmdPause:
		if c.state != Playing {
			return nil
		}
		if err := c.client.Pause(); err != nil {
			return err
		}
		if err := c.client.Flush(); err != nil {
			return err
		}
		c.state = Paused
		log.Printf("Paused at %s", c.clk.Now().Seconds())

	case CmdRestart:
		// Restart deliberately skips the flush that pause and stop perform,
		// so audio already buffered on the receiver survives the restart.
		start := ComputeStart(c.clk, c.clk.Now(), restartDelayMs, c.client.Latency(), c.client.SampleRate())
		if err := c.client.StartAt(start); err != nil {
			return err
		}
		c.state = Playing
		log.Printf("Restarted at %s", c.clk.Now().Seconds())

	case CmdStop:
		err := c.client.Stop()
		if flushErr := c.client.Flush(); err == nil {
			err = flushErr
		}
		c.state = Stopped
		log.Printf("Stopped at %s", c.clk.Now().Seconds())
		c.shutdown()
		return err
	}

	return nil
}
