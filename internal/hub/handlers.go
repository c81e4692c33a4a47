package hub

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/pairwire/signaling/internal/matchmaking"
	"github.com/pairwire/signaling/internal/metrics"
	"github.com/pairwire/signaling/internal/protocol"
	"github.com/pairwire/signaling/internal/ratelimit"
	"github.com/pairwire/signaling/internal/report"
	"github.com/pairwire/signaling/internal/ws"
)

// archiveTimeout bounds the best-effort write to the report archive so a slow
// database never stalls a report handler.
const archiveTimeout = 2 * time.Second

// JoinQueue places the participant on the waiting queue matching its filters,
// or pairs it immediately with a compatible waiting participant. On a pairing
// both sides receive a matched message carrying the shared session id and the
// other side's socket id.
func (h *Hub) JoinQueue(socketID string, filters map[string]string) {
	ctx := context.Background()

	if !h.allowed(ctx, socketID, ratelimit.RuleJoin) {
		h.sendError(socketID, "rate_limited", "too many queue joins")
		return
	}

	res, err := h.manager.Join(ctx, socketID, filters)
	if err != nil {
		if errors.Is(err, matchmaking.ErrInSession) {
			h.sendError(socketID, "in_session", "already in an active session")
			return
		}
		log.Printf("hub: join failed socket=%s: %v", socketID, err)
		h.sendError(socketID, "internal_error", "failed to join queue")
		return
	}

	if !res.Matched {
		h.sendTo(socketID, protocol.TypeQueued, protocol.QueuedMsg{})
		metrics.WaitingTotal.Inc()
		return
	}

	// The peer came off a waiting queue.
	metrics.WaitingTotal.Dec()
	metrics.MatchesTotal.Inc()
	metrics.ActiveSessions.Set(float64(h.registry.Count()))

	h.sendTo(socketID, protocol.TypeMatched, protocol.MatchedMsg{
		SessionID:    res.SessionID,
		PeerSocketID: res.PeerID,
	})

	// The peer may be hosted by another instance sharing the durable queue.
	peerMsg, err := protocol.NewServerMessage(protocol.TypeMatched, protocol.MatchedMsg{
		SessionID:    res.SessionID,
		PeerSocketID: socketID,
	})
	if err != nil {
		log.Printf("hub: failed to build matched message: %v", err)
		return
	}
	if err := h.deliver(res.PeerID, peerMsg); err != nil {
		log.Printf("hub: matched dropped session=%s peer=%s: %v", res.SessionID, res.PeerID, err)
	}
}

// LeaveQueue removes the participant from its waiting queue. Leaving while
// not queued is a silent no-op.
func (h *Hub) LeaveQueue(socketID string) {
	if !h.manager.Leave(context.Background(), socketID) {
		return
	}
	metrics.WaitingTotal.Dec()
	h.sendTo(socketID, protocol.TypeLeftQueue, protocol.LeftQueueMsg{})
}

// Signal forwards an opaque negotiation payload to the addressed participant.
// The payload is never inspected; an unreachable target drops the message
// with nothing sent back to the sender.
func (h *Hub) Signal(socketID, to string, data []byte) {
	if !h.allowed(context.Background(), socketID, ratelimit.RuleSignal) {
		h.sendError(socketID, "rate_limited", "too many signaling messages")
		return
	}
	h.relay.Signal(socketID, to, data)
	metrics.RelayedTotal.WithLabelValues("signal").Inc()
}

// RelayText forwards a free-text message to the addressed participant with
// the same drop-if-unreachable semantics as Signal.
func (h *Hub) RelayText(socketID, to, text string) {
	if !h.allowed(context.Background(), socketID, ratelimit.RuleSignal) {
		h.sendError(socketID, "rate_limited", "too many relay messages")
		return
	}
	h.relay.Text(socketID, to, text)
	metrics.RelayedTotal.WithLabelValues("text").Inc()
}

// Report scores an abuse report from one session member against the other.
// Reports against sessions that no longer exist, or from connections that
// are not a member of the named session, are discarded silently. When the
// reported participant's score crosses the ejection threshold it is notified
// and force-disconnected, exactly once.
func (h *Hub) Report(socketID, sessionID, reason string) {
	ctx := context.Background()

	if !h.allowed(ctx, socketID, ratelimit.RuleReport) {
		h.sendError(socketID, "rate_limited", "too many reports")
		return
	}

	sess, ok := h.registry.Lookup(sessionID)
	if !ok {
		return
	}
	if sess.A != socketID && sess.B != socketID {
		return
	}
	target := sess.Peer(socketID)

	metrics.ReportsTotal.Inc()

	if h.archive != nil {
		actx, cancel := context.WithTimeout(ctx, archiveTimeout)
		err := h.archive.Create(actx, &report.Report{
			ReporterSocketID: socketID,
			ReportedSocketID: target,
			SessionID:        sessionID,
			Reason:           reason,
		})
		cancel()
		if err != nil {
			log.Printf("hub: report archive write failed session=%s: %v", sessionID, err)
		}
	}

	count, eject := h.scorer.Report(target)

	// The target may have disconnected between the session lookup and the
	// scoring. Its disconnect cleanup already discarded its score, so the
	// increment above would leak a counter for a dead socket id; drop it
	// again and skip the kick.
	if _, ok := h.registry.Lookup(sessionID); !ok {
		h.scorer.Forget(target)
		return
	}

	if !eject {
		log.Printf("hub: report scored target=%s count=%d", target, count)
		return
	}

	log.Printf("hub: ejecting socket=%s after %d reports", target, count)
	metrics.EjectionsTotal.Inc()
	h.kick(target, "abuse")
}

// BindDispatcher registers the hub's message handlers on the transport
// dispatcher. Handlers receive the concrete structs produced by
// protocol.ParseClientMessage; ping is handled inside the dispatcher itself.
func (h *Hub) BindDispatcher(d *ws.MessageDispatcher) {
	d.Register(protocol.TypeJoinQueue, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.JoinQueueMsg)
		if !ok {
			return
		}
		h.JoinQueue(conn.ID, m.Filters)
	})

	d.Register(protocol.TypeLeaveQueue, func(conn *ws.Connection, msg interface{}) {
		h.LeaveQueue(conn.ID)
	})

	d.Register(protocol.TypeSignal, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.SignalMsg)
		if !ok {
			return
		}
		h.Signal(conn.ID, m.To, m.Data)
	})

	d.Register(protocol.TypeRelayMsg, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.RelayMsg)
		if !ok {
			return
		}
		h.RelayText(conn.ID, m.To, m.Text)
	})

	d.Register(protocol.TypeReport, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.ReportMsg)
		if !ok {
			return
		}
		h.Report(conn.ID, m.SessionID, m.Reason)
	})
}
