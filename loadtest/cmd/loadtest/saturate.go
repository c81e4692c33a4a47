package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pairwire/signaling/loadtest/client"
	"github.com/pairwire/signaling/loadtest/stats"
)

// runSaturate implements the connection saturation test. It opens a
// specified number of WebSocket connections to the server, ramping up over a
// configurable duration, then holds them open for a hold period. This test
// finds the maximum connection capacity before the server starts rejecting
// or dropping connections.
func runSaturate(args []string) {
	fs := flag.NewFlagSet("saturate", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	connections := fs.Int("connections", 1000, "Number of connections to open")
	rampUp := fs.Duration("ramp", 10*time.Second, "Ramp-up duration")
	hold := fs.Duration("hold", 30*time.Second, "Hold duration after all connections are open")
	concurrency := fs.Int("concurrency", 50, "Maximum simultaneous connection attempts during ramp-up")
	fs.Parse(args)

	fmt.Printf("Saturate test: %d connections to %s (ramp=%s, hold=%s, concurrency=%d)\n",
		*connections, *url, *rampUp, *hold, *concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()

	var mu sync.Mutex
	clients := make([]*client.Client, 0, *connections)

	interval := *rampUp / time.Duration(*connections)
	if interval <= 0 {
		interval = time.Millisecond
	}

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	// Progress reporting once per second during ramp-up.
	progressStop := make(chan struct{})
	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		lastCount := 0
		lastTime := time.Now()
		for {
			select {
			case <-ticker.C:
				now := time.Now()
				currentConns := collector.ConnectionCount()
				currentErrs := collector.ErrorCount()
				dt := now.Sub(lastTime).Seconds()
				rate := float64(currentConns-lastCount) / dt
				fmt.Printf("  [ramp] connections: %d/%d  errors: %d  rate: %.1f conn/s\n",
					currentConns, *connections, currentErrs, rate)
				lastCount = currentConns
				lastTime = now
			case <-progressStop:
				return
			}
		}
	}()

	rampTicker := time.NewTicker(interval)
	defer rampTicker.Stop()

	interrupted := false
	launched := 0
	for launched < *connections {
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted during ramp-up.")
			interrupted = true
			launched = *connections // break the loop
		case <-rampTicker.C:
			launched++
			wg.Add(1)
			sem <- struct{}{}

			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
				defer connCancel()

				c, err := client.New(connCtx, *url)
				if err != nil {
					collector.AddError()
					return
				}
				if err := c.WaitForSocketID(connCtx); err != nil {
					collector.AddError()
					c.Close()
					return
				}
				collector.AddConnect(c.GetMetrics().ConnectLatency)

				mu.Lock()
				clients = append(clients, c)
				mu.Unlock()
			}()
		}
	}

	wg.Wait()
	close(progressStop)
	progressWg.Wait()

	fmt.Printf("\nRamp-up complete: %d connected, %d errors\n",
		collector.ConnectionCount(), collector.ErrorCount())

	if !interrupted {
		fmt.Printf("\n--- Hold phase (%s) ---\n", *hold)
		select {
		case <-ctx.Done():
			fmt.Println("Interrupted during hold.")
		case <-time.After(*hold):
		}
	}

	fmt.Println("\nClosing connections...")
	mu.Lock()
	for _, c := range clients {
		c.Close()
	}
	mu.Unlock()

	collector.Report()
}
