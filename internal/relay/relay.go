// Package relay forwards opaque payloads between participants by socket id.
// The relay never parses or validates what it carries; it only re-tags the
// payload with the sender's id and hands it to the outbound sink.
package relay

import (
	"encoding/json"
	"log"

	"github.com/pairwire/signaling/internal/protocol"
)

// Sink delivers an encoded server message to a participant. Delivery is
// best-effort: the sink reports an error when the recipient is unreachable
// and the relay drops the message silently.
type Sink interface {
	Send(socketID string, data []byte) error
}

// Relay forwards signaling payloads and free-text relay messages.
type Relay struct {
	sink Sink
}

// New creates a Relay writing to the given sink.
func New(sink Sink) *Relay {
	return &Relay{sink: sink}
}

// Signal forwards an opaque negotiation payload from one participant to
// another. The payload travels verbatim; an unreachable recipient means the
// message is dropped with no error surfaced to the sender.
func (r *Relay) Signal(from, to string, payload json.RawMessage) {
	data, err := protocol.NewServerMessage(protocol.TypeSignal, protocol.ServerSignalMsg{
		From: from,
		Data: payload,
	})
	if err != nil {
		log.Printf("relay: failed to build signal from=%s: %v", from, err)
		return
	}
	if err := r.sink.Send(to, data); err != nil {
		log.Printf("relay: signal dropped from=%s to=%s: %v", from, to, err)
	}
}

// Text forwards a free-text message between participants with the same
// drop-if-unreachable semantics as Signal.
func (r *Relay) Text(from, to, text string) {
	data, err := protocol.NewServerMessage(protocol.TypeRelayMsg, protocol.ServerRelayMsg{
		From: from,
		Text: text,
	})
	if err != nil {
		log.Printf("relay: failed to build relay_msg from=%s: %v", from, err)
		return
	}
	if err := r.sink.Send(to, data); err != nil {
		log.Printf("relay: relay_msg dropped from=%s to=%s: %v", from, to, err)
	}
}
