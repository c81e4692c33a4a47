// Package events provides the optional NATS bridge that carries outbound
// participant events between server instances. With a shared Redis waiting
// queue, a join on one instance can pop a participant connected to another;
// the matched/kick/relay events for that participant are published here and
// delivered by whichever instance hosts the connection.
package events

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns. Both are suffixed with the participant's socket id.
const (
	SubjectPeerEvent = "peer.event" // + .<socket_id>: encoded server message to deliver
	SubjectPeerKick  = "peer.kick"  // + .<socket_id>: force-disconnect directive
)

// Client wraps the NATS connection with helper methods for per-participant
// pub/sub.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		Name:          "pairwire",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewClient(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishPeerEvent publishes an encoded server message for a participant
// that may be connected to another instance.
func (c *Client) PublishPeerEvent(socketID string, data []byte) error {
	return c.conn.Publish(SubjectPeerEvent+"."+socketID, data)
}

// PublishPeerKick publishes a force-disconnect directive for a participant.
// The payload is the encoded kicked message delivered before the close.
func (c *Client) PublishPeerKick(socketID string, data []byte) error {
	return c.conn.Publish(SubjectPeerKick+"."+socketID, data)
}

// SubscribePeer subscribes the hosting instance to a connected
// participant's event and kick subjects. onEvent receives encoded server
// messages to forward; onKick receives the encoded kicked message and must
// close the connection.
func (c *Client) SubscribePeer(socketID string, onEvent func(data []byte), onKick func(data []byte)) error {
	eventSubject := SubjectPeerEvent + "." + socketID
	eventSub, err := c.conn.Subscribe(eventSubject, func(msg *nats.Msg) {
		onEvent(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", eventSubject, err)
	}

	kickSubject := SubjectPeerKick + "." + socketID
	kickSub, err := c.conn.Subscribe(kickSubject, func(msg *nats.Msg) {
		onKick(msg.Data)
	})
	if err != nil {
		_ = eventSub.Unsubscribe()
		return fmt.Errorf("nats subscribe %s: %w", kickSubject, err)
	}

	c.mu.Lock()
	c.subs[eventSubject] = eventSub
	c.subs[kickSubject] = kickSub
	c.mu.Unlock()
	return nil
}

// UnsubscribePeer drops a participant's subscriptions when its connection
// closes.
func (c *Client) UnsubscribePeer(socketID string) {
	for _, subject := range []string{
		SubjectPeerEvent + "." + socketID,
		SubjectPeerKick + "." + socketID,
	} {
		if err := c.unsubscribe(subject); err != nil {
			log.Printf("[nats] %v", err)
		}
	}
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}

// unsubscribe removes and unsubscribes from a specific subject.
func (c *Client) unsubscribe(subject string) error {
	c.mu.Lock()
	sub, ok := c.subs[subject]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for subject %s", subject)
	}
	delete(c.subs, subject)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", subject, err)
	}
	return nil
}
