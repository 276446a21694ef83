package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/internal/circuit"
	"github.com/HannahMarsh/simple-onion-routing/internal/model/client"
	"github.com/HannahMarsh/simple-onion-routing/internal/network"
	"github.com/HannahMarsh/simple-onion-routing/pkg/infrastructure/logger"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Define command-line flags
	id := flag.Int("id", -1, "ID of the user (required)")
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

	userConfig, ok := cfg.GetUser(*id)
	if !ok {
		slog.Error("invalid id", "error", fmt.Errorf("failed to get user config for id=%d", *id))
		os.Exit(1)
	}

	slog.Info("⚡ init user", "id", *id)

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

	address := cfg.UserAddress(userConfig.ID)
	newClient := client.NewClient(userConfig.ID, address, ks, network.NewDirectory(cfg), tr, circuit.NewBuilder(nil), cfg)

	server, err := network.Serve(cfg.Host, address, newClient.Routes())
	if err != nil {
		slog.Error("failed to start HTTP server", "error", err)
		os.Exit(1)
	}
	tr.Listen(ctx, address, newClient.ReceiveMessage)

	metricsPort, shutdownMetrics, err := network.ServeMetrics(cfg, userConfig.PrometheusPort)
	if err != nil {
		slog.Error("failed to start metrics server", "error", err)
		os.Exit(1)
	}
	if metricsPort != 0 {
		slog.Info("serving metrics", "user", *id, "port", metricsPort)
	}

	slog.Info("🌏 start user...", "address", cfg.URL(address))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	v := <-quit
	slog.Info("", "signal.Notify", v)
	network.Shutdown(server)
	shutdownMetrics()
}
