package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pairwire/signaling/loadtest/client"
	"github.com/pairwire/signaling/loadtest/stats"
)

// runMatch implements the matchmaking flow load test. Pairs of simulated
// participants connect, join the same waiting queue, wait for the matched
// message, and exchange one signaling round trip before disconnecting. Each
// pair uses a distinct filter set so pairs match deterministically with
// their partner and not across pairs.
func runMatch(args []string) {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	pairs := fs.Int("pairs", 100, "Number of participant pairs")
	concurrency := fs.Int("concurrency", 20, "Maximum pairs running simultaneously")
	timeout := fs.Duration("timeout", 15*time.Second, "Per-pair timeout for the full flow")
	fs.Parse(args)

	fmt.Printf("Match test: %d pairs against %s (concurrency=%d, timeout=%s)\n",
		*pairs, *url, *concurrency, *timeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	for i := 0; i < *pairs; i++ {
		select {
		case <-ctx.Done():
			i = *pairs
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			defer func() { <-sem }()

			pairCtx, cancel := context.WithTimeout(ctx, *timeout)
			defer cancel()

			if err := runPair(pairCtx, *url, pairID, collector); err != nil {
				collector.AddError()
			}
		}(i)
	}

	wg.Wait()
	collector.Report()
}

// runPair drives one pair through the full flow: connect both, join the same
// queue, wait for matched on both sides, then bounce one signal payload from
// the first participant to the second and back.
func runPair(ctx context.Context, url string, pairID int, collector *stats.Collector) error {
	filters := map[string]string{"pair": fmt.Sprintf("p%d", pairID)}

	a, err := client.New(ctx, url)
	if err != nil {
		return fmt.Errorf("pair %d: connect a: %w", pairID, err)
	}
	defer a.Close()

	b, err := client.New(ctx, url)
	if err != nil {
		return fmt.Errorf("pair %d: connect b: %w", pairID, err)
	}
	defer b.Close()

	if err := a.WaitForSocketID(ctx); err != nil {
		return fmt.Errorf("pair %d: greeting a: %w", pairID, err)
	}
	if err := b.WaitForSocketID(ctx); err != nil {
		return fmt.Errorf("pair %d: greeting b: %w", pairID, err)
	}
	collector.AddConnect(a.GetMetrics().ConnectLatency)
	collector.AddConnect(b.GetMetrics().ConnectLatency)

	type matchInfo struct {
		PeerSocketID string `json:"peer_socket_id"`
	}
	matchedA := make(chan matchInfo, 1)
	matchedB := make(chan matchInfo, 1)

	a.On(client.TypeMatched, func(raw json.RawMessage) {
		var m matchInfo
		if json.Unmarshal(raw, &m) == nil {
			matchedA <- m
		}
	})
	b.On(client.TypeMatched, func(raw json.RawMessage) {
		var m matchInfo
		if json.Unmarshal(raw, &m) == nil {
			matchedB <- m
		}
	})

	// The signal echo: b returns any payload it receives to its sender.
	echoed := make(chan struct{}, 1)
	b.On(client.TypeSignal, func(raw json.RawMessage) {
		var m struct {
			From string          `json:"from"`
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(raw, &m) == nil {
			_ = b.Signal(m.From, m.Data)
		}
	})
	a.On(client.TypeSignal, func(json.RawMessage) {
		select {
		case echoed <- struct{}{}:
		default:
		}
	})

	if err := a.JoinQueue(filters); err != nil {
		return fmt.Errorf("pair %d: join a: %w", pairID, err)
	}
	if err := b.JoinQueue(filters); err != nil {
		return fmt.Errorf("pair %d: join b: %w", pairID, err)
	}

	var peerOfA string
	select {
	case <-ctx.Done():
		return fmt.Errorf("pair %d: timed out waiting for match", pairID)
	case m := <-matchedA:
		peerOfA = m.PeerSocketID
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("pair %d: timed out waiting for b's match", pairID)
	case <-matchedB:
	}
	collector.AddMatch(a.GetMetrics().MatchLatency)
	collector.AddMatch(b.GetMetrics().MatchLatency)

	// One signaling round trip through the relay.
	start := time.Now()
	payload := json.RawMessage(fmt.Sprintf(`{"kind":"offer","pair":%d}`, pairID))
	if err := a.Signal(peerOfA, payload); err != nil {
		return fmt.Errorf("pair %d: signal: %w", pairID, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("pair %d: timed out waiting for signal echo", pairID)
	case <-echoed:
		collector.AddSignalLatency(time.Since(start))
	}

	return nil
}
