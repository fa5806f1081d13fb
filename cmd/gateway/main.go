package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/home-smart-assistant/smart-assistant-gateway/internal/agent"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/bridge"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/config"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/dispatch"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/history"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/httpapi"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/observability"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/session"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/wake"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	transcripts, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("transcript store init failed: %v", err)
	}
	defer transcripts.Close()

	agentClient := agent.NewHTTPClient(cfg.AgentBaseURL, cfg.AgentTimeout)
	bridgeClient := bridge.NewHTTPClient(cfg.BridgeBaseURL, cfg.AgentTimeout)

	arbiter := wake.NewArbiter(cfg.WakeLockTTL)
	log.Printf("wake arbitration: lock ttl %s", arbiter.LockTTL())

	sessions := session.NewStore(cfg.SessionIdleTimeout)
	sessions.SetEvictHook(func(sess *session.Session) {
		log.Printf("session %s evicted after idle timeout", sess.ID)
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	dispatcher := dispatch.New(sessions, arbiter, agentClient, transcripts, metrics, cfg.AgentTimeout, cfg.StrictTextEncoding)

	api := httpapi.New(cfg, sessions, arbiter, dispatcher, agentClient, bridgeClient, transcripts, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.SessionJanitorInterval)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every "+cfg.WakeSweepInterval.String(), func() {
		if removed := arbiter.Sweep(); removed > 0 {
			log.Printf("wake sweep removed %d expired lock(s)", removed)
		}
		metrics.ActiveWakeLocks.Set(float64(arbiter.ActiveLocks()))
	}); err != nil {
		log.Fatalf("wake sweep schedule failed: %v", err)
	}
	sweeper.Start()

	go func() {
		log.Printf("gateway listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	<-sweeper.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
