package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/classchat/relay/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "framed-TCP listen address override")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg := server.NewConfigFromEnv()
	if *configPath != "" {
		var err error
		cfg, err = server.LoadConfig(*configPath)
		if err != nil {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger.Info("starting ClassChat coordinator",
		"listen_addr", cfg.ListenAddr,
		"gateway_addr", cfg.GatewayAddr,
		"max_frame_size", cfg.MaxFrameSize,
	)

	hub := server.NewHub(cfg, logger)
	srv := server.NewServer(cfg, hub, logger)

	var gateway *server.Gateway
	if cfg.GatewayAddr != "" {
		gateway = server.NewGateway(cfg, hub, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	if gateway != nil {
		g.Go(gateway.ListenAndServe)
	}
	g.Go(func() error {
		<-gctx.Done()
		_ = srv.Close()
		if gateway != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()
			if err := gateway.Shutdown(shutdownCtx); err != nil {
				logger.Warn("gateway shutdown error", "error", err)
			}
		}
		return hub.Shutdown(cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("coordinator exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("coordinator stopped")
}
