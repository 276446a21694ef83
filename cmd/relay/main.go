package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/relay"
	"github.com/HannahMarsh/simple-onion-routing/internal/network"
	"github.com/HannahMarsh/simple-onion-routing/pkg/infrastructure/logger"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Define command-line flags
	id := flag.Int("id", -1, "ID of the new relay (required)")
	logLevel := flag.String("log-level", "debug", "Log level")
	configPath := flag.String("config", "", "Path to the config file (default config/config.yml)")

	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0]); err != nil {
			slog.Error("failed to print usage", "error", err)
		}
		flag.PrintDefaults()
	}

	flag.Parse()

	// Check if the required flag is provided
	if *id == -1 {
		_, _ = fmt.Fprintf(os.Stderr, "Error: the -id flag is required\n")
		flag.Usage()
		os.Exit(2)
	}

	logger.SetUpLogrusAndSlog(*logLevel)

	// set GOMAXPROCS
	if _, err := maxprocs.Set(); err != nil {
		slog.Error("failed set max procs", "error", err)
		os.Exit(1)
	}

	if _, err := config.InitGlobalFrom(*configPath); err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	cfg := config.GlobalConfig

	relayConfig, ok := cfg.GetRelay(*id)
	if !ok {
		slog.Error("invalid id", "error", fmt.Errorf("failed to get relay config for id=%d", *id))
		os.Exit(1)
	}

	slog.Info("⚡ init relay", "id", *id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ks, err := network.NewKeyService(cfg)
	if err != nil {
		slog.Error("failed to set up crypto", "error", err)
		os.Exit(1)
	}
	tr, err := network.NewTransport(cfg)
	if err != nil {
		slog.Error("failed to set up transport", "error", err)
		os.Exit(1)
	}
	defer tr.Close()

	address := cfg.RelayAddress(relayConfig.ID)
	var newRelay *relay.Relay
	for {
		if n, err := relay.NewRelay(ctx, relayConfig.ID, address, ks, network.NewDirectory(cfg), tr, relayConfig.MaxInboundPerSecond); err != nil {
			slog.Error("failed to create relay. Trying again in 5 seconds. ", "error", err)
			time.Sleep(5 * time.Second)
			continue
		} else {
			newRelay = n
			break
		}
	}

	server, err := network.Serve(cfg.Host, address, newRelay.Routes())
	if err != nil {
		slog.Error("failed to start HTTP server", "error", err)
		os.Exit(1)
	}
	tr.Listen(ctx, address, newRelay.Receive)

	metricsPort, shutdownMetrics, err := network.ServeMetrics(cfg, relayConfig.PrometheusPort)
	if err != nil {
		slog.Error("failed to start metrics server", "error", err)
		os.Exit(1)
	}
	if metricsPort != 0 {
		slog.Info("serving metrics", "relay", *id, "port", metricsPort)
	}

	slog.Info("🌏 start relay...", "address", cfg.URL(address))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	v := <-quit
	slog.Info("", "signal.Notify", v)
	network.Shutdown(server)
	shutdownMetrics()
}
