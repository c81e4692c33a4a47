// Package hub coordinates the lifecycle of connected participants. It wires
// the transport to the matchmaking queue, session registry, relay, and abuse
// scorer, and owns the cleanup that runs when a connection goes away. All
// state transitions for a participant happen here, driven by transport
// callbacks and dispatched messages.
package hub

import (
	"context"
	"log"

	"github.com/pairwire/signaling/internal/abuse"
	"github.com/pairwire/signaling/internal/events"
	"github.com/pairwire/signaling/internal/matchmaking"
	"github.com/pairwire/signaling/internal/metrics"
	"github.com/pairwire/signaling/internal/protocol"
	"github.com/pairwire/signaling/internal/queuestore"
	"github.com/pairwire/signaling/internal/ratelimit"
	"github.com/pairwire/signaling/internal/relay"
	"github.com/pairwire/signaling/internal/report"
	"github.com/pairwire/signaling/internal/sessions"
)

// Transport delivers encoded messages to locally connected participants and
// force-terminates their connections. SendMessage returns an error when the
// socket id is not hosted by this instance.
type Transport interface {
	SendMessage(socketID string, data []byte) error
	Disconnect(socketID string)
}

// Hub owns per-participant lifecycle: queue membership, session peering,
// payload relay, abuse scoring, and disconnect cleanup.
type Hub struct {
	transport Transport
	manager   *matchmaking.Manager
	registry  *sessions.Registry
	scorer    *abuse.Scorer
	relay     *relay.Relay

	// Optional collaborators, nil when the backing service is not configured.
	limiter *ratelimit.Limiter
	archive *report.Store
	events  *events.Client
	queues  *queuestore.Fallback
}

// New creates a Hub over the given transport and core state. Optional
// collaborators (rate limiter, report archive, event bridge) are attached
// with the Set* methods before the transport starts accepting connections.
func New(transport Transport, manager *matchmaking.Manager, registry *sessions.Registry, scorer *abuse.Scorer) *Hub {
	h := &Hub{
		transport: transport,
		manager:   manager,
		registry:  registry,
		scorer:    scorer,
	}
	h.relay = relay.New(sinkFunc(h.deliver))
	return h
}

// sinkFunc adapts a function to the relay.Sink interface.
type sinkFunc func(socketID string, data []byte) error

func (f sinkFunc) Send(socketID string, data []byte) error { return f(socketID, data) }

// SetRateLimiter attaches a Redis-backed rate limiter. Without one, all
// message rates are accepted.
func (h *Hub) SetRateLimiter(l *ratelimit.Limiter) {
	h.limiter = l
}

// SetArchive attaches a durable abuse-report archive. Writes to it are
// best-effort and never affect scoring.
func (h *Hub) SetArchive(s *report.Store) {
	h.archive = s
}

// SetEvents attaches the cross-instance event bridge. With it, messages for
// participants hosted on other instances are published instead of dropped,
// which matters when several instances share one waiting queue.
func (h *Hub) SetEvents(c *events.Client) {
	h.events = c
}

// SetQueueStore attaches the fallback queue store so disconnect cleanup can
// sweep the in-process queues for any stray entries.
func (h *Hub) SetQueueStore(f *queuestore.Fallback) {
	h.queues = f
}

// HandleConnect runs when the transport registers a new connection. The
// participant learns its socket id, and the instance subscribes to the
// participant's event subjects so peers on other instances can reach it.
func (h *Hub) HandleConnect(socketID string) {
	h.sendTo(socketID, protocol.TypeConnected, protocol.ConnectedMsg{SocketID: socketID})
	metrics.ConnectionsTotal.Inc()

	if h.events != nil {
		err := h.events.SubscribePeer(socketID,
			func(data []byte) {
				if err := h.transport.SendMessage(socketID, data); err != nil {
					log.Printf("hub: bridged event dropped socket=%s: %v", socketID, err)
				}
			},
			func(data []byte) {
				if err := h.transport.SendMessage(socketID, data); err != nil {
					log.Printf("hub: bridged kick notice dropped socket=%s: %v", socketID, err)
				}
				h.transport.Disconnect(socketID)
			},
		)
		if err != nil {
			log.Printf("hub: event subscribe failed socket=%s: %v", socketID, err)
		}
	}
}

// HandleDisconnect runs when a connection is removed, whatever the cause:
// client close, read error, heartbeat timeout, or ejection. It removes the
// participant from its waiting queue, tears down any sessions it was part of
// (notifying the remaining peers), and discards its abuse score.
func (h *Hub) HandleDisconnect(socketID string) {
	ctx := context.Background()

	if h.manager.Leave(ctx, socketID) {
		metrics.WaitingTotal.Dec()
	}
	if h.queues != nil {
		h.queues.Local().RemoveEverywhere(socketID)
	}

	for _, sess := range h.registry.DropAllInvolving(socketID) {
		peer := sess.Peer(socketID)
		data, err := protocol.NewServerMessage(protocol.TypePeerLeft, protocol.PeerLeftMsg{})
		if err != nil {
			log.Printf("hub: failed to build peer_left: %v", err)
			continue
		}
		if err := h.deliver(peer, data); err != nil {
			log.Printf("hub: peer_left dropped session=%s peer=%s: %v", sess.ID, peer, err)
		}
	}

	h.scorer.Forget(socketID)

	if h.events != nil {
		h.events.UnsubscribePeer(socketID)
	}

	metrics.ConnectionsTotal.Dec()
	metrics.ActiveSessions.Set(float64(h.registry.Count()))
}

// deliver sends an encoded message to a participant, falling back to the
// event bridge for participants hosted on another instance. Callers treat a
// returned error as "recipient unreachable".
func (h *Hub) deliver(socketID string, data []byte) error {
	err := h.transport.SendMessage(socketID, data)
	if err == nil {
		return nil
	}
	if h.events != nil {
		return h.events.PublishPeerEvent(socketID, data)
	}
	return err
}

// kick notifies a participant it is being ejected and closes its connection.
// A participant hosted on another instance is kicked through the event
// bridge instead.
func (h *Hub) kick(socketID, reason string) {
	data, err := protocol.NewServerMessage(protocol.TypeKicked, protocol.KickedMsg{Reason: reason})
	if err != nil {
		log.Printf("hub: failed to build kicked message: %v", err)
		return
	}

	if err := h.transport.SendMessage(socketID, data); err == nil {
		h.transport.Disconnect(socketID)
		return
	}

	if h.events != nil {
		if err := h.events.PublishPeerKick(socketID, data); err != nil {
			log.Printf("hub: kick publish failed socket=%s: %v", socketID, err)
		}
	}
}

// sendTo builds a server message and sends it to a locally connected
// participant, logging delivery failures.
func (h *Hub) sendTo(socketID, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("hub: failed to build %s message: %v", msgType, err)
		return
	}
	if err := h.transport.SendMessage(socketID, data); err != nil {
		log.Printf("hub: %s dropped socket=%s: %v", msgType, socketID, err)
	}
}

// sendError sends a structured error message to a participant.
func (h *Hub) sendError(socketID, code, message string) {
	h.sendTo(socketID, protocol.TypeError, protocol.ErrorMsg{Code: code, Message: message})
}

// allowed checks the participant against a rate limiting rule. With no
// limiter configured everything passes.
func (h *Hub) allowed(ctx context.Context, socketID string, rule ratelimit.Rule) bool {
	if h.limiter == nil {
		return true
	}
	ok, _ := h.limiter.Allow(ctx, socketID, rule)
	return ok
}
