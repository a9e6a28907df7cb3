package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdu732a/jitsi/pkg/bridge"
	"github.com/Abdu732a/jitsi/pkg/config"
	"github.com/Abdu732a/jitsi/pkg/log"
	"github.com/Abdu732a/jitsi/pkg/meet"
	"github.com/Abdu732a/jitsi/pkg/server"
	"github.com/Abdu732a/jitsi/pkg/statebus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Init("info")
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	log.Info("Starting embed controller...")

	// Create components
	bus := statebus.NewBus()
	hub := bridge.NewHub(cfg.WebSocket.WriteTimeout)

	loader := meet.NewLoader(&meet.HTTPFetcher{URL: cfg.Widget.ScriptURL}, hub.EntryPresent)

	controller := meet.NewController(meet.Settings{
		Domain:             cfg.Widget.Domain,
		Width:              cfg.Widget.Width,
		Height:             cfg.Widget.Height,
		ParentNode:         cfg.Widget.ParentNode,
		DefaultDisplayName: cfg.Session.DefaultDisplayName,
		PollInterval:       cfg.Session.PollInterval,
		MaxPollAttempts:    cfg.Session.MaxPollAttempts,
	}, loader, hub, bus, nil)
	dispatcher := meet.NewDispatcher(controller)

	wsServer := server.NewWebSocketServer(bus, controller, hub, cfg)
	httpServer := server.NewHTTPServer(controller, dispatcher, wsServer)

	// Start HTTP server in a goroutine
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpServer,
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	waitForShutdown(srv, controller)
}

func waitForShutdown(srv *http.Server, controller *meet.Controller) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Tear the session down first so the widget is disposed before the
	// facade goes away.
	controller.Close()
	log.Info("Session controller shut down")

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Error during HTTP server shutdown: %v", err)
	} else {
		log.Info("HTTP server shut down successfully")
	}

	log.Info("Shutdown complete.")
}
