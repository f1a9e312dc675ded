package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/civatrix/reptrack/internal/bridge"
	"github.com/civatrix/reptrack/internal/channel"
	"github.com/civatrix/reptrack/internal/config"
	"github.com/civatrix/reptrack/internal/logbuf"
	"github.com/civatrix/reptrack/internal/mcp"
	"github.com/civatrix/reptrack/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logs := logbuf.New(500)
	inner := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := slog.New(logbuf.NewHandler(inner, logs))
	log.Info("reptrack starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open store — no usable store means no usable process
	st, err := store.Open(cfg.Device.DataDir)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	log.Info("store opened", "dir", cfg.Device.DataDir)

	// Pair link — tsnet or plain HTTP
	var listener net.Listener
	httpClient := &http.Client{Timeout: 10 * time.Second}

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		httpClient = tsServer.HTTPClient()
		httpClient.Timeout = 10 * time.Second

		listener, err = tsServer.Listen("tcp", fmt.Sprintf(":%d", cfg.Link.Port))
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("pair link on tailnet", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Link.Host, cfg.Link.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("pair link listening", "addr", addr)
	}

	link := channel.NewHTTPLink(cfg.Link.PeerURL, httpClient, log)
	primary := bridge.NewPrimary(st, link, log)

	linkSrv := &http.Server{Handler: link.Router()}
	go func() {
		if err := linkSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("link server error", "error", err)
			os.Exit(1)
		}
	}()

	// Activate the pairing, retrying until the satellite is reachable.
	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := primary.Activate(ctx)
			cancel()
			if err == nil {
				log.Info("pair link activated", "peer", cfg.Link.PeerURL)
				return
			}
			log.Warn("pair activation failed, retrying", "error", err)
			time.Sleep(5 * time.Second)
		}
	}()

	// MCP server
	var mcpSrv *mcpserver.StreamableHTTPServer
	if cfg.MCP.Enabled {
		mcpSrv = mcpserver.NewStreamableHTTPServer(mcp.New(st, primary, logs, Version, log))
		go func() {
			addr := fmt.Sprintf(":%d", cfg.MCP.Port)
			log.Info("mcp server starting", "addr", addr)
			if err := mcpSrv.Start(addr); err != nil && err != http.ErrServerClosed {
				log.Error("mcp server error", "error", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := linkSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if mcpSrv != nil {
		if err := mcpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("mcp shutdown error", "error", err)
		}
	}
	log.Info("stopped")
}
