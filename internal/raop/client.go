// ABOUTME: Transport client contract for streaming to a remote receiver
// ABOUTME: Defines the session record, codec/crypto modes, and volume mapping
package raop

import (
	"github.com/aircast-audio/aircast-go/internal/clock"
)

const (
	// MaxSamplesPerChunk is the largest number of audio frames sent in one
	// chunk.
	MaxSamplesPerChunk = 352

	// MinLatency is the smallest output latency receivers report, in ticks.
	MinLatency = 11025
)

// Codec selects the audio encoding negotiated with the receiver.
type Codec int

const (
	CodecPCM Codec = iota
	CodecALAC
)

func (c Codec) String() string {
	if c == CodecALAC {
		return "alac"
	}
	return "pcm"
}

// Crypto selects the stream encryption mode.
type Crypto int

const (
	CryptoClear Crypto = iota
	CryptoRSA
)

func (c Crypto) String() string {
	if c == CryptoRSA {
		return "rsa"
	}
	return "clear"
}

// Session is the immutable-after-connect description of one streaming
// session.
type Session struct {
	Address    string
	Port       int
	Codec      Codec
	Crypto     Crypto
	Password   string
	Secret     string
	Volume     int    // 0-100, mapped with FloatVolume
	Latency    uint32 // requested output latency in ticks
	SampleRate int
	Channels   int
	BitDepth   int
}

// BytesPerFrame returns the size of one audio frame in bytes.
func (s Session) BytesPerFrame() int {
	return s.Channels * s.BitDepth / 8
}

// Client is the transport consumed by the streaming core. Connection
// handshake, encryption, encoding, and wire framing all live behind it.
type Client interface {
	// Connect establishes the session on the given port. setVolume applies
	// the session volume during the handshake.
	Connect(port int, setVolume bool) error
	Disconnect() error
	Destroy()

	// StartAt schedules playback of the next frame at the given shared time.
	// A value in the past starts as soon as possible.
	StartAt(start clock.NTP) error
	Pause() error
	Stop() error
	Flush() error
	Keepalive() error

	// AcceptFrames reports whether the receiver currently has buffer
	// capacity for another chunk.
	AcceptFrames() bool
	// SendChunk transmits one chunk and returns the shared time at which its
	// first frame will be rendered.
	SendChunk(data []byte) (clock.NTP, error)

	// IsPlaying reports protocol-level session liveness, independent of the
	// local transport state.
	IsPlaying() bool
	// Latency returns the negotiated output latency in ticks.
	Latency() uint32
	SampleRate() int
}

// FloatVolume maps a 0-100 percent volume to the receiver's gain scale. Zero
// mutes outright; everything else spans -30..0 dB.
func FloatVolume(percent int) float64 {
	if percent <= 0 {
		return -144
	}
	if percent > 100 {
		percent = 100
	}
	return -30 + 30*float64(percent)/100
}
