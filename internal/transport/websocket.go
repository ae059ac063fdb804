// ABOUTME: WebSocket transport implementing the raop client contract
// ABOUTME: Handles connection, handshake, control messages, and audio frames
package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aircast-audio/aircast-go/internal/clock"
	"github.com/aircast-audio/aircast-go/internal/protocol"
	"github.com/aircast-audio/aircast-go/internal/raop"
	"github.com/aircast-audio/aircast-go/internal/version"
)

const handshakeTimeout = 5 * time.Second

// Config holds transport configuration.
type Config struct {
	Session raop.Session
	Clock   clock.Clock
	Debug   int // log level, 0 = quiet
}

// WSClient is a WebSocket-backed implementation of raop.Client. Failures are
// fatal: a failed send or keepalive drops the liveness flag and is never
// retried.
type WSClient struct {
	config Config
	clk    clock.Clock

	mu        sync.RWMutex // guards conn writes and all flags below
	conn      *websocket.Conn
	connected bool
	playing   bool
	accept    bool
	latency   uint32
	rate      int
	start     clock.NTP
	frames    uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a transport client for one session.
func NewClient(config Config) *WSClient {
	if config.Clock == nil {
		config.Clock = clock.NewSystemClock()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WSClient{
		config:  config,
		clk:     config.Clock,
		latency: config.Session.Latency,
		rate:    config.Session.SampleRate,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect dials the receiver and performs the handshake. setVolume applies
// the session volume as part of the hello.
func (c *WSClient) Connect(port int, setVolume bool) error {
	host := net.JoinHostPort(c.config.Session.Address, strconv.Itoa(port))
	u := url.URL{Scheme: "ws", Host: host, Path: "/aircast"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(setVolume); err != nil {
		c.teardown()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends sender/hello and waits for receiver/hello.
func (c *WSClient) handshake(setVolume bool) error {
	s := c.config.Session

	hello := protocol.SenderHello{
		SenderID:   uuid.New().String(),
		Name:       version.Product,
		Version:    version.Version,
		Codec:      s.Codec.String(),
		Crypto:     s.Crypto.String(),
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
		BitDepth:   s.BitDepth,
		Latency:    s.Latency,
		Password:   s.Password,
		Secret:     s.Secret,
	}
	if setVolume {
		gain := raop.FloatVolume(s.Volume)
		hello.Volume = &gain
	}

	if err := c.sendJSON(protocol.Message{Type: protocol.TypeSenderHello, Payload: hello}); err != nil {
		return fmt.Errorf("send sender/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read receiver/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("parse receiver/hello: %w", err)
	}
	if msg.Type != protocol.TypeReceiverHello {
		return fmt.Errorf("expected %s, got %s", protocol.TypeReceiverHello, msg.Type)
	}

	payloadBytes, _ := json.Marshal(msg.Payload)
	var reply protocol.ReceiverHello
	if err := json.Unmarshal(payloadBytes, &reply); err != nil {
		return fmt.Errorf("parse receiver/hello payload: %w", err)
	}

	c.mu.Lock()
	if reply.Latency > 0 {
		c.latency = reply.Latency
	}
	if reply.SampleRate > 0 {
		c.rate = reply.SampleRate
	}
	c.playing = true
	c.accept = true
	c.start = c.clk.Now()
	c.mu.Unlock()

	log.Printf("Handshake complete with receiver %s", reply.Name)
	return nil
}

// readMessages reads and routes incoming control messages.
func (c *WSClient) readMessages() {
	defer c.teardown()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsPlaying() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		payloadBytes, _ := json.Marshal(msg.Payload)

		switch msg.Type {
		case protocol.TypeWindow:
			var window protocol.Window
			json.Unmarshal(payloadBytes, &window)
			c.mu.Lock()
			c.accept = window.Accept
			c.mu.Unlock()
			if c.config.Debug > 0 {
				log.Printf("Receiver window: accept=%v", window.Accept)
			}

		case protocol.TypeSessionUpdate:
			var update protocol.SessionUpdate
			json.Unmarshal(payloadBytes, &update)
			c.mu.Lock()
			c.playing = update.Playing
			c.mu.Unlock()
			if c.config.Debug > 0 {
				log.Printf("Session update: playing=%v", update.Playing)
			}

		default:
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}

// sendJSON writes a control message. Callers must not hold c.mu.
func (c *WSClient) sendJSON(msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

// StartAt schedules playback at the given shared time and rebases the
// playtime stamping of subsequent chunks.
func (c *WSClient) StartAt(start clock.NTP) error {
	err := c.sendJSON(protocol.Message{
		Type:    protocol.TypeStreamStart,
		Payload: protocol.StreamStart{Start: uint64(start)},
	})
	if err != nil {
		return c.fatal(err)
	}

	c.mu.Lock()
	c.start = start
	c.frames = 0
	c.mu.Unlock()
	return nil
}

// Pause pauses rendering on the receiver. The session stays live.
func (c *WSClient) Pause() error {
	return c.control(protocol.TypeStreamPause)
}

// Stop ends rendering. The local liveness flag drops immediately; the
// receiver confirms with a session update on its way down.
func (c *WSClient) Stop() error {
	err := c.control(protocol.TypeStreamStop)
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
	return err
}

// Flush discards audio buffered on the receiver.
func (c *WSClient) Flush() error {
	return c.control(protocol.TypeStreamFlush)
}

// Keepalive signals the receiver that the session is still active.
func (c *WSClient) Keepalive() error {
	return c.control(protocol.TypeKeepalive)
}

func (c *WSClient) control(msgType string) error {
	if err := c.sendJSON(protocol.Message{Type: msgType}); err != nil {
		return c.fatal(err)
	}
	return nil
}

// AcceptFrames reports whether the receiver currently accepts another chunk.
func (c *WSClient) AcceptFrames() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.accept
}

// SendChunk transmits one chunk as a binary frame stamped with the shared
// time its first frame plays at.
func (c *WSClient) SendChunk(data []byte) (clock.NTP, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return 0, fmt.Errorf("not connected")
	}

	playtime := c.start + clock.TicksToNTP(c.frames+uint64(c.latency), c.rate)

	frame := encodeChunk(playtime, data)
	err := c.conn.WriteMessage(websocket.BinaryMessage, frame)
	if err == nil {
		c.frames += uint64(len(data) / c.config.Session.BytesPerFrame())
	}
	c.mu.Unlock()

	if err != nil {
		return 0, c.fatal(err)
	}
	return playtime, nil
}

// encodeChunk builds a binary audio frame.
func encodeChunk(playtime clock.NTP, data []byte) []byte {
	frame := make([]byte, 9+len(data))
	frame[0] = protocol.BinaryAudioFrame
	binary.BigEndian.PutUint64(frame[1:9], uint64(playtime))
	copy(frame[9:], data)
	return frame
}

// IsPlaying reports protocol-level session liveness.
func (c *WSClient) IsPlaying() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playing
}

// Latency returns the negotiated output latency in ticks.
func (c *WSClient) Latency() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latency
}

// SampleRate returns the negotiated sample rate.
func (c *WSClient) SampleRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rate
}

// Disconnect closes the session gracefully.
func (c *WSClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.connected = false
	c.playing = false
	return c.conn.Close()
}

// Destroy releases the client. Safe to call after Disconnect.
func (c *WSClient) Destroy() {
	c.teardown()
}

// fatal marks the session dead and returns the error unchanged.
func (c *WSClient) fatal(err error) error {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
	return err
}

// teardown force-closes the connection and drops all flags.
func (c *WSClient) teardown() {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		c.connected = false
		c.conn.Close()
	}
	c.playing = false
}
