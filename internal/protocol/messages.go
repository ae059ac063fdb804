// ABOUTME: Control message definitions for the sender transport
// ABOUTME: Defines the JSON frames exchanged with a receiver
package protocol

// Message is the top-level wrapper for all control messages.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// SenderHello opens a streaming session. It carries the negotiable session
// parameters; the receiver answers with ReceiverHello.
type SenderHello struct {
	SenderID   string   `json:"sender_id"`
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Codec      string   `json:"codec"`
	Crypto     string   `json:"crypto"`
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	BitDepth   int      `json:"bit_depth"`
	Latency    uint32   `json:"latency,omitempty"` // requested, in ticks
	Volume     *float64 `json:"volume,omitempty"`  // receiver gain scale
	Password   string   `json:"password,omitempty"`
	Secret     string   `json:"secret,omitempty"`
}

// ReceiverHello is the receiver's handshake response with the negotiated
// session parameters.
type ReceiverHello struct {
	ReceiverID string `json:"receiver_id"`
	Name       string `json:"name"`
	Latency    uint32 `json:"latency"` // negotiated output latency, ticks
	SampleRate int    `json:"sample_rate"`
}

// StreamStart schedules playback at an absolute shared-time value.
type StreamStart struct {
	Start uint64 `json:"start"` // NTP
}

// Window is a receiver-pushed backpressure update.
type Window struct {
	Accept bool `json:"accept"`
}

// SessionUpdate reports protocol-level session liveness.
type SessionUpdate struct {
	Playing bool `json:"playing"`
}

// Message types. Types without a dedicated payload struct are identified by
// Type alone.
const (
	TypeSenderHello   = "sender/hello"
	TypeReceiverHello = "receiver/hello"
	TypeStreamStart   = "stream/start"
	TypeStreamPause   = "stream/pause"
	TypeStreamStop    = "stream/stop"
	TypeStreamFlush   = "stream/flush"
	TypeKeepalive     = "session/keepalive"
	TypeWindow        = "receiver/window"
	TypeSessionUpdate = "session/update"
)

// BinaryAudioFrame is the type byte prefixing binary audio frames: one type
// byte, an 8-byte big-endian NTP playtime, then the chunk payload.
const BinaryAudioFrame = 0x00
