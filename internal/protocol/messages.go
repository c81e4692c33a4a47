// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
// Signaling payloads are carried as raw JSON and never interpreted.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinQueue  = "join_queue"
	TypeLeaveQueue = "leave_queue"
	TypeSignal     = "signal"
	TypeRelayMsg   = "relay_msg"
	TypeReport     = "report"
	TypePing       = "ping"
)

// Server -> Client message types. signal and relay_msg are echoed back with
// a "from" field and reuse the client-side constants above.
const (
	TypeConnected = "connected"
	TypeQueued    = "queued"
	TypeLeftQueue = "left_queue"
	TypeMatched   = "matched"
	TypeKicked    = "kicked"
	TypePeerLeft  = "peer_left"
	TypeError     = "error"
	TypePong      = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinQueueMsg is sent by the client to enter the matchmaking queue with
// optional compatibility filters. Two clients are eligible to be paired only
// when their filter sets canonicalize to the same key.
type JoinQueueMsg struct {
	Type    string            `json:"type"`
	Filters map[string]string `json:"filters"`
}

// LeaveQueueMsg is sent by the client to leave the matchmaking queue.
type LeaveQueueMsg struct {
	Type string `json:"type"`
}

// SignalMsg carries an opaque session-negotiation payload (offer, answer,
// network candidate) addressed to a peer by its socket id. The server
// forwards Data verbatim without parsing it.
type SignalMsg struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// RelayMsg is a free-text message relayed to a peer by its socket id.
type RelayMsg struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// ReportMsg is sent by the client to report the other participant of a
// session for abuse.
type ReportMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// ConnectedMsg is sent by the server when a connection is established,
// carrying the transport-assigned socket id the client is known by.
type ConnectedMsg struct {
	Type     string `json:"type"`
	SocketID string `json:"socket_id"`
}

// QueuedMsg confirms the client has been placed on a waiting queue.
type QueuedMsg struct {
	Type string `json:"type"`
}

// LeftQueueMsg confirms the client has been removed from its waiting queue.
type LeftQueueMsg struct {
	Type string `json:"type"`
}

// MatchedMsg is sent to both sides of a fresh pairing.
type MatchedMsg struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	PeerSocketID string `json:"peer_socket_id"`
}

// ServerSignalMsg is an opaque signaling payload forwarded from a peer,
// tagged with the sender's socket id.
type ServerSignalMsg struct {
	Type string          `json:"type"`
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// ServerRelayMsg is a free-text message forwarded from a peer.
type ServerRelayMsg struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
}

// KickedMsg is sent to a participant just before it is forcibly
// disconnected for accumulating too many abuse reports.
type KickedMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// PeerLeftMsg is sent to the remaining member of a session when the other
// side disconnects.
type PeerLeftMsg struct {
	Type string `json:"type"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoinQueue:
		var m JoinQueueMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeLeaveQueue:
		var m LeaveQueueMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSignal:
		var m SignalMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRelayMsg:
		var m RelayMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeReport:
		var m ReportMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server-side message structs; this function marshals it
// to JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
