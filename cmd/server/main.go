package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pairwire/signaling/internal/abuse"
	"github.com/pairwire/signaling/internal/events"
	"github.com/pairwire/signaling/internal/hub"
	"github.com/pairwire/signaling/internal/ice"
	"github.com/pairwire/signaling/internal/matchmaking"
	"github.com/pairwire/signaling/internal/metrics"
	"github.com/pairwire/signaling/internal/queuestore"
	"github.com/pairwire/signaling/internal/ratelimit"
	"github.com/pairwire/signaling/internal/report"
	"github.com/pairwire/signaling/internal/sessions"
	"github.com/pairwire/signaling/internal/ws"
)

func main() {
	config := ws.DefaultServerConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	// --- Redis (waiting queues + rate limiting) ---
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}

	local := queuestore.NewMemoryStore()
	var queues *queuestore.Fallback

	redisClient, err := queuestore.NewRedisClient(redisAddr)
	if err != nil {
		// The server stays up on the in-process queues; participants on
		// other instances just won't be matchable.
		log.Printf("redis unavailable at %s, queues are in-process only: %v", redisAddr, err)
		queues = queuestore.NewFallback(local, local)
	} else {
		queues = queuestore.NewFallback(queuestore.NewRedisStore(redisClient), local)
	}

	// --- Core state ---
	registry := sessions.NewRegistry()
	manager := matchmaking.NewManager(queues, registry)
	scorer := abuse.NewScorer()

	// --- Transport ---
	dispatcher := ws.NewMessageDispatcher(nil)
	server := ws.NewServer(config, dispatcher.Dispatch)
	dispatcher.SetServer(server)

	// --- Coordinator ---
	h := hub.New(server, manager, registry, scorer)
	h.SetQueueStore(queues)
	h.BindDispatcher(dispatcher)

	if redisClient != nil {
		h.SetRateLimiter(ratelimit.NewLimiter(redisClient))
	}

	// --- NATS (optional cross-instance event bridge) ---
	var natsClient *events.Client
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		natsConfig := events.DefaultConfig()
		natsConfig.URL = natsURL
		natsClient, err = events.NewClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		h.SetEvents(natsClient)
	}

	// --- PostgreSQL (optional durable report archive) ---
	var reportDB *report.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		migrationsDir := "migrations"
		if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
			migrationsDir = v
		}
		if err := report.Migrate(dsn, migrationsDir); err != nil {
			log.Fatalf("failed to migrate report schema: %v", err)
		}
		db, err := report.Open(dsn)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()
		reportDB = report.NewStore(db)
		h.SetArchive(reportDB)
	}

	// --- ICE credential provider ---
	iceConfig := ice.DefaultConfig()
	iceConfig.ProviderURL = os.Getenv("ICE_PROVIDER_URL")
	iceConfig.APIKey = os.Getenv("ICE_API_KEY")
	iceClient := ice.NewClient(iceConfig)

	server.Handle("/ice", iceClient.Handler())
	server.Handle("/metrics", metrics.Handler())

	server.SetOnConnect(func(conn *ws.Connection) {
		h.HandleConnect(conn.ID)
	})
	server.SetOnDisconnect(h.HandleDisconnect)

	log.Printf("pairwire signaling server starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  worker_pool:     %d", config.WorkerPoolSize)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  read_timeout:    %s", config.ReadTimeout)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)
	log.Printf("  redis_addr:      %s", redisAddr)
	log.Printf("  nats:            %v", natsClient != nil)
	log.Printf("  report_archive:  %v", reportDB != nil)
	log.Printf("  ice_provider:    %q", iceConfig.ProviderURL)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if natsClient != nil {
			natsClient.Close()
		}
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
